package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"

	"github.com/saturnino-fabrica-de-software/momento/internal/backend"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"INVALID_NAME"`
	Message string `json:"message" example:"Name must contain only letters, digits and spaces"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

// BoxResponse is a face region in frame pixels
type BoxResponse struct {
	Top    int `json:"top" example:"40"`
	Right  int `json:"right" example:"180"`
	Bottom int `json:"bottom" example:"200"`
	Left   int `json:"left" example:"20"`
}

// MatchResponse is one detection scoring above the threshold
type MatchResponse struct {
	Name  string      `json:"name" example:"Alice"`
	Box   BoxResponse `json:"box"`
	Score float64     `json:"score" example:"0.82"`
}

// RecognitionResponse is the outcome of one recognition
type RecognitionResponse struct {
	Matches     []MatchResponse `json:"matches"`
	Detections  int             `json:"detections" example:"2"`
	Skipped     int             `json:"skipped" example:"0"`
	LatencyMs   int64           `json:"latency_ms" example:"48"`
	CompletedAt string          `json:"completed_at" example:"2024-01-01T00:00:00Z"`
}

// FaceResponse answers enrollment
type FaceResponse struct {
	Name string `json:"name" example:"Alice"`
}

// FacesResponse lists enrolled names
type FacesResponse struct {
	Names []string `json:"names" example:"Alice,Bob"`
	Count int      `json:"count" example:"2"`
}

// StatusResponse describes the engine
type StatusResponse struct {
	ModelState    string `json:"model_state" example:"ready"`
	Running       bool   `json:"running" example:"true"`
	InFlight      bool   `json:"in_flight" example:"false"`
	LastLatencyMs int64  `json:"last_latency_ms" example:"48"`
	Completed     uint64 `json:"completed" example:"120"`
	Dropped       uint64 `json:"dropped" example:"3"`
	Discarded     uint64 `json:"discarded" example:"0"`
	Failed        uint64 `json:"failed" example:"0"`
	Enrolled      int    `json:"enrolled" example:"2"`
}

// HealthResponse answers /health and /ready
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Version string `json:"version,omitempty" example:"0.1.0"`
}

func healthEndpoints() []*endpoint.EndPoint {
	return []*endpoint.EndPoint{
		endpoint.New(
			endpoint.GET,
			"/health",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Liveness check"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "Process is up"),
			}),
		),
		endpoint.New(
			endpoint.GET,
			"/ready",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Readiness check"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{Status: "ready"}, "200", "Dependencies are reachable"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(HealthResponse{Status: "not_ready"}, "503", "A dependency is unreachable"),
			}),
		),
	}
}

// NewEngineSwagger documents the recognition engine API
func NewEngineSwagger(host string) *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Momento Recognition Engine API",
		Version:     "v1.0.0",
		Description: "Enroll named faces and match live camera frames against them",
		Host:        host,
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/recognize
		endpoint.New(
			endpoint.POST,
			"/recognize",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Recognize faces in a frame"),
			endpoint.WithDescription("Matches every face in the uploaded multipart image against the enrolled set. Without an image the current camera frame is used. Fails with 409 while another recognition is running."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RecognitionResponse{}, "200", "Recognition completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NO_FRAME_SOURCE", Message: "No image supplied and no camera configured"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "RECOGNITION_IN_FLIGHT", Message: "A recognition is already running"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or corrupted file"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "MODEL_UNAVAILABLE", Message: "Recognition models are not loaded"}, "503", "Service Unavailable"),
			}),
		),

		// POST /v1/faces
		endpoint.New(
			endpoint.POST,
			"/faces",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Enroll a face"),
			endpoint.WithDescription("Enrolls the form field name from a multipart image (or the camera) holding exactly one face. The in-memory store changes only after the backend accepts the face."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(FaceResponse{}, "201", "Face enrolled"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_NAME", Message: "Name must contain only letters, digits and spaces"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "NO_SINGLE_FACE", Message: "Exactly one face must be visible to enroll"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "BACKEND_UNAVAILABLE", Message: "Face storage backend is unreachable"}, "502", "Bad Gateway"),
				response.New(ErrorResponse{Code: "MODEL_UNAVAILABLE", Message: "Recognition models are not loaded"}, "503", "Service Unavailable"),
			}),
		),

		// GET /v1/faces
		endpoint.New(
			endpoint.GET,
			"/faces",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("List enrolled names"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(FacesResponse{}, "200", "Names held by the embedding store"),
			}),
		),

		// DELETE /v1/faces/:name
		endpoint.New(
			endpoint.DELETE,
			"/faces/{name}",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Remove an enrolled face"),
			endpoint.WithParams(
				parameter.StrParam("name", parameter.Path, parameter.WithDescription("Enrolled name")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Face removed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BACKEND_REJECTED", Message: "Face storage backend rejected the request"}, "502", "Bad Gateway"),
			}),
		),

		// GET /v1/status
		endpoint.New(
			endpoint.GET,
			"/status",
			endpoint.WithTags("Session"),
			endpoint.WithSummary("Engine status"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StatusResponse{}, "200", "Model state and scheduler counters"),
			}),
		),

		// POST /v1/session/start
		endpoint.New(
			endpoint.POST,
			"/session/start",
			endpoint.WithTags("Session"),
			endpoint.WithSummary("Start periodic recognition"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StatusResponse{Running: true}, "200", "Session running"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NO_FRAME_SOURCE", Message: "No image supplied and no camera configured"}, "400", "Bad Request"),
			}),
		),

		// POST /v1/session/stop
		endpoint.New(
			endpoint.POST,
			"/session/stop",
			endpoint.WithTags("Session"),
			endpoint.WithSummary("Stop periodic recognition"),
			endpoint.WithDescription("Results of a recognition still in flight are discarded."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StatusResponse{}, "200", "Session stopped"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)
	sw.AddEndpoints(healthEndpoints())

	return sw
}

// NewBackendSwagger documents the face storage API
func NewBackendSwagger(host string) *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Momento Face Storage API",
		Version:     "v1.0.0",
		Description: "System of record for enrolled faces and their embeddings. Every answer carries worked; failures also carry message.",
		Host:        host,
	})

	failed := func(code string) response.Response {
		return response.New(backend.StatusResponse{Message: "request failed"}, code, "worked is false")
	}

	endpoints := []*endpoint.EndPoint{
		endpoint.New(
			endpoint.POST,
			backend.PathEnroll,
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Store or replace a named face"),
			endpoint.WithDescription("Body: {username, image (base64 or data URI), name, embedding (unit vector)}"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(backend.StatusResponse{Worked: true}, "200", "Face stored"),
			}),
			endpoint.WithErrors([]response.Response{failed("400"), failed("422"), failed("500")}),
		),
		endpoint.New(
			endpoint.POST,
			backend.PathRemove,
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Remove a named face"),
			endpoint.WithDescription("Body: {username, name}"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(backend.StatusResponse{Worked: true}, "200", "Face removed"),
			}),
			endpoint.WithErrors([]response.Response{failed("404"), failed("422"), failed("500")}),
		),
		endpoint.New(
			endpoint.POST,
			backend.PathSavedList,
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("List names enrolled for a user"),
			endpoint.WithDescription("Body: {username}"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(backend.ListResponse{Worked: true, Names: []string{"Alice"}}, "200", "Enrolled names"),
			}),
			endpoint.WithErrors([]response.Response{failed("422"), failed("500")}),
		),
		endpoint.New(
			endpoint.POST,
			backend.PathEmbedding,
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Fetch the embedding stored for a name"),
			endpoint.WithDescription("Body: {username, name}"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(backend.EmbeddingResponse{Worked: true, Embedding: []float64{0.6, 0.8}}, "200", "Stored embedding"),
			}),
			endpoint.WithErrors([]response.Response{failed("404"), failed("422"), failed("500")}),
		),
	}

	sw.AddEndpoints(endpoints)
	sw.AddEndpoints(healthEndpoints())

	return sw
}
