package backend

// Paths of the backend JSON API
const (
	PathEnroll    = "/enroll"
	PathRemove    = "/remove"
	PathSavedList = "/getsavedfaces"
	PathEmbedding = "/embedding"
)

// EnrollRequest is the body for POST /enroll. Image is the base64 encoded
// frame, optionally prefixed with a data URI.
type EnrollRequest struct {
	Username  string    `json:"username" validate:"required,max=255"`
	Image     string    `json:"image" validate:"required"`
	Name      string    `json:"name" validate:"required,facename"`
	Embedding []float64 `json:"embedding" validate:"required,min=1,unitvector"`
}

// RemoveRequest is the body for POST /remove
type RemoveRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Name     string `json:"name" validate:"required,facename"`
}

// ListRequest is the body for POST /getsavedfaces
type ListRequest struct {
	Username string `json:"username" validate:"required,max=255"`
}

// EmbeddingRequest is the body for POST /embedding
type EmbeddingRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Name     string `json:"name" validate:"required,facename"`
}

// StatusResponse answers enroll and remove
type StatusResponse struct {
	Worked  bool   `json:"worked"`
	Message string `json:"message,omitempty"`
}

// ListResponse answers getsavedfaces
type ListResponse struct {
	Worked  bool     `json:"worked"`
	Names   []string `json:"names"`
	Message string   `json:"message,omitempty"`
}

// EmbeddingResponse answers embedding
type EmbeddingResponse struct {
	Worked    bool      `json:"worked"`
	Embedding []float64 `json:"embedding,omitempty"`
	Message   string    `json:"message,omitempty"`
}
