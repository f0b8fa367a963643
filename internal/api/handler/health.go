package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Version reported by /health
const Version = "0.1.0"

// ReadinessCheck reports whether a dependency can serve requests
type ReadinessCheck func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]ReadinessCheck
}

// NewHealthHandler creates a handler; /ready fails while any check fails
func NewHealthHandler(checks map[string]ReadinessCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	results := make(map[string]string, len(h.checks))
	ready := true

	for name, check := range h.checks {
		if err := check(c.Context()); err != nil {
			results[name] = err.Error()
			ready = false
			continue
		}
		results[name] = "ok"
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{
			Status: "not_ready",
			Checks: results,
		})
	}

	return c.JSON(HealthResponse{
		Status: "ready",
		Checks: results,
	})
}
