package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/model"
	"github.com/saturnino-fabrica-de-software/momento/internal/preprocess"
	"github.com/saturnino-fabrica-de-software/momento/internal/scheduler"
	"github.com/saturnino-fabrica-de-software/momento/internal/ws"
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10MB
)

// FaceService runs the enrollment and removal workflows
type FaceService interface {
	Enroll(ctx context.Context, name string, frame domain.Frame) error
	Remove(ctx context.Context, name string) error
	Known() []string
}

// RecognitionRunner is the recognition scheduler
type RecognitionRunner interface {
	RecognizeNow(ctx context.Context, frame *domain.Frame) (domain.Recognition, error)
	Start(ctx context.Context) error
	Stop()
	Status() scheduler.Status
}

// ModelStatus reports the model lifecycle state
type ModelStatus interface {
	State() model.State
}

// FrameSource supplies a camera frame when a request carries no image
type FrameSource interface {
	Frame(ctx context.Context) (domain.Frame, error)
}

// Publisher pushes events to websocket subscribers
type Publisher interface {
	Publish(username string, eventType ws.EventType, data interface{})
}

// EngineDeps groups the collaborators of EngineHandler. Camera may be nil.
type EngineDeps struct {
	Faces     FaceService
	Scheduler RecognitionRunner
	Models    ModelStatus
	Camera    FrameSource
	Events    Publisher
	Username  string
	// Session is the parent context of periodic recognition sessions
	Session context.Context
}

// EngineHandler serves the recognition engine API
type EngineHandler struct {
	deps   EngineDeps
	logger *slog.Logger
}

func NewEngineHandler(deps EngineDeps, logger *slog.Logger) *EngineHandler {
	if deps.Session == nil {
		deps.Session = context.Background()
	}
	return &EngineHandler{
		deps:   deps,
		logger: logger.With("component", "engine_handler"),
	}
}

// FaceResponse answers enroll and remove
type FaceResponse struct {
	Name string `json:"name"`
}

// FacesResponse lists the enrolled names
type FacesResponse struct {
	Names []string `json:"names"`
	Count int      `json:"count"`
}

// StatusResponse describes the engine state
type StatusResponse struct {
	ModelState    string `json:"model_state"`
	Running       bool   `json:"running"`
	InFlight      bool   `json:"in_flight"`
	LastLatencyMs int64  `json:"last_latency_ms"`
	Completed     uint64 `json:"completed"`
	Dropped       uint64 `json:"dropped"`
	Discarded     uint64 `json:"discarded"`
	Failed        uint64 `json:"failed"`
	Enrolled      int    `json:"enrolled"`
}

// Recognize POST /v1/recognize - match the uploaded image, or the current
// camera frame when no image is sent
func (h *EngineHandler) Recognize(c *fiber.Ctx) error {
	frame, err := h.uploadedFrame(c)
	if err != nil {
		return err
	}

	rec, err := h.deps.Scheduler.RecognizeNow(c.Context(), frame)
	if err != nil {
		return err
	}

	return c.JSON(rec)
}

// Enroll POST /v1/faces - enroll name from the uploaded image or the camera
func (h *EngineHandler) Enroll(c *fiber.Ctx) error {
	name := c.FormValue("name")
	if err := domain.ValidateName(name); err != nil {
		return err
	}

	frame, err := h.uploadedFrame(c)
	if err != nil {
		return err
	}
	if frame == nil {
		f, err := h.cameraFrame(c.Context())
		if err != nil {
			return err
		}
		frame = &f
	}

	if err := h.deps.Faces.Enroll(c.Context(), name, *frame); err != nil {
		return err
	}

	h.publish(ws.EventFaceEnrolled, FaceResponse{Name: name})
	return c.Status(fiber.StatusCreated).JSON(FaceResponse{Name: name})
}

// Remove DELETE /v1/faces/:name
func (h *EngineHandler) Remove(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return domain.ErrInvalidName.WithError(err)
	}
	if err := domain.ValidateName(name); err != nil {
		return err
	}

	if err := h.deps.Faces.Remove(c.Context(), name); err != nil {
		return err
	}

	h.publish(ws.EventFaceRemoved, FaceResponse{Name: name})
	return c.SendStatus(fiber.StatusNoContent)
}

// List GET /v1/faces - names held by the embedding store
func (h *EngineHandler) List(c *fiber.Ctx) error {
	names := h.deps.Faces.Known()
	return c.JSON(FacesResponse{Names: names, Count: len(names)})
}

// Status GET /v1/status
func (h *EngineHandler) Status(c *fiber.Ctx) error {
	st := h.deps.Scheduler.Status()
	return c.JSON(StatusResponse{
		ModelState:    h.deps.Models.State().String(),
		Running:       st.Running,
		InFlight:      st.InFlight,
		LastLatencyMs: st.LastMs,
		Completed:     st.Completed,
		Dropped:       st.Dropped,
		Discarded:     st.Discarded,
		Failed:        st.Failed,
		Enrolled:      len(h.deps.Faces.Known()),
	})
}

// StartSession POST /v1/session/start - begin periodic recognition
func (h *EngineHandler) StartSession(c *fiber.Ctx) error {
	if err := h.deps.Scheduler.Start(h.deps.Session); err != nil {
		return err
	}
	h.publish(ws.EventSessionStarted, nil)
	return h.Status(c)
}

// StopSession POST /v1/session/stop - tear down periodic recognition;
// results still in flight are discarded
func (h *EngineHandler) StopSession(c *fiber.Ctx) error {
	h.deps.Scheduler.Stop()
	h.publish(ws.EventSessionStopped, nil)
	return h.Status(c)
}

func (h *EngineHandler) publish(eventType ws.EventType, data interface{}) {
	if h.deps.Events == nil {
		return
	}
	h.deps.Events.Publish(h.deps.Username, eventType, data)
}

func (h *EngineHandler) cameraFrame(ctx context.Context) (domain.Frame, error) {
	if h.deps.Camera == nil {
		return domain.Frame{}, domain.ErrNoFrameSource
	}
	return h.deps.Camera.Frame(ctx)
}

// uploadedFrame decodes the multipart "image" field. It returns nil when
// the request carries no image.
func (h *EngineHandler) uploadedFrame(c *fiber.Ctx) (*domain.Frame, error) {
	contentType := string(c.Request().Header.ContentType())
	if !strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		return nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}
	files := form.File["image"]
	if len(files) == 0 {
		return nil, nil
	}

	file := files[0]
	if file.Size == 0 || file.Size > maxImageSize {
		return nil, domain.ErrInvalidImage.WithError(errors.New("image must be between 1 byte and 10MB"))
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	frame, err := preprocess.DecodeFrame(data)
	if err != nil {
		return nil, err
	}
	return &frame, nil
}
