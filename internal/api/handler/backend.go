package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/momento/internal/backend"
	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/preprocess"
)

// FaceStore persists enrolled faces per user
type FaceStore interface {
	Upsert(ctx context.Context, face *domain.Face) error
	Delete(ctx context.Context, username, name string) error
	ListNames(ctx context.Context, username string) ([]string, error)
	GetEmbedding(ctx context.Context, username, name string) ([]float32, error)
}

// BackendHandler serves the JSON face storage API consumed by the engine.
// Every answer carries worked; failures also carry a message.
type BackendHandler struct {
	faces    FaceStore
	validate *validator.Validate
	logger   *slog.Logger
}

func NewBackendHandler(faces FaceStore, validate *validator.Validate, logger *slog.Logger) *BackendHandler {
	return &BackendHandler{
		faces:    faces,
		validate: validate,
		logger:   logger.With("component", "backend_handler"),
	}
}

// Enroll POST /enroll - store or replace a named face
func (h *BackendHandler) Enroll(c *fiber.Ctx) error {
	var req backend.EnrollRequest
	if status, msg, ok := h.bind(c, &req); !ok {
		return c.Status(status).JSON(backend.StatusResponse{Message: msg})
	}

	frame, err := preprocess.DecodeBase64Frame(req.Image)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(backend.StatusResponse{
			Message: domain.ErrInvalidImage.Message,
		})
	}

	vec := make([]float32, len(req.Embedding))
	for i, x := range req.Embedding {
		vec[i] = float32(x)
	}

	face := &domain.Face{
		Username:  req.Username,
		Name:      req.Name,
		Image:     frame.Data,
		Embedding: vec,
	}
	if err := h.faces.Upsert(c.Context(), face); err != nil {
		h.logger.Error("enroll failed",
			slog.String("username", req.Username),
			slog.String("name", req.Name),
			slog.Any("error", err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(backend.StatusResponse{
			Message: "failed to store face",
		})
	}

	h.logger.Info("face enrolled",
		slog.String("username", req.Username),
		slog.String("name", req.Name),
		slog.Int("dimension", len(vec)),
	)
	return c.JSON(backend.StatusResponse{Worked: true})
}

// Remove POST /remove - delete a named face
func (h *BackendHandler) Remove(c *fiber.Ctx) error {
	var req backend.RemoveRequest
	if status, msg, ok := h.bind(c, &req); !ok {
		return c.Status(status).JSON(backend.StatusResponse{Message: msg})
	}

	err := h.faces.Delete(c.Context(), req.Username, req.Name)
	if errors.Is(err, domain.ErrFaceNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(backend.StatusResponse{
			Message: domain.ErrFaceNotFound.Message,
		})
	}
	if err != nil {
		h.logger.Error("remove failed", slog.String("username", req.Username), slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(backend.StatusResponse{
			Message: "failed to remove face",
		})
	}

	return c.JSON(backend.StatusResponse{Worked: true})
}

// List POST /getsavedfaces - names enrolled for a user
func (h *BackendHandler) List(c *fiber.Ctx) error {
	var req backend.ListRequest
	if status, msg, ok := h.bind(c, &req); !ok {
		return c.Status(status).JSON(backend.ListResponse{Names: []string{}, Message: msg})
	}

	names, err := h.faces.ListNames(c.Context(), req.Username)
	if err != nil {
		h.logger.Error("list failed", slog.String("username", req.Username), slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(backend.ListResponse{
			Names:   []string{},
			Message: "failed to list faces",
		})
	}

	return c.JSON(backend.ListResponse{Worked: true, Names: names})
}

// Embedding POST /embedding - stored embedding for one name
func (h *BackendHandler) Embedding(c *fiber.Ctx) error {
	var req backend.EmbeddingRequest
	if status, msg, ok := h.bind(c, &req); !ok {
		return c.Status(status).JSON(backend.EmbeddingResponse{Message: msg})
	}

	vec, err := h.faces.GetEmbedding(c.Context(), req.Username, req.Name)
	if errors.Is(err, domain.ErrFaceNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(backend.EmbeddingResponse{
			Message: domain.ErrFaceNotFound.Message,
		})
	}
	if err != nil {
		h.logger.Error("embedding lookup failed", slog.String("username", req.Username), slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(backend.EmbeddingResponse{
			Message: "failed to load embedding",
		})
	}

	out := make([]float64, len(vec))
	for i, x := range vec {
		out[i] = float64(x)
	}
	return c.JSON(backend.EmbeddingResponse{Worked: true, Embedding: out})
}

// bind parses and validates the JSON body, returning the status and message
// to answer with when the request is unusable
func (h *BackendHandler) bind(c *fiber.Ctx, req interface{}) (int, string, bool) {
	if err := c.BodyParser(req); err != nil {
		return fiber.StatusBadRequest, "invalid JSON body", false
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.StatusUnprocessableEntity, validationMessage(err), false
	}
	return 0, "", true
}
