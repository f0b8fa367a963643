package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// ErrorHandler renders every error as {"error":{"code","message"}}. Errors
// mapped to a 5xx are logged with the request id; the underlying cause never
// reaches the client.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, body := classify(err)

		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				slog.String("code", body.Code),
				slog.Any("error", err),
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.String("request_id", requestID(c)),
			)
		}

		return c.Status(status).JSON(errorEnvelope{Error: body})
	}
}

func classify(err error) (int, errorBody) {
	var appErr *domain.AppError
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &appErr):
		return appErr.StatusCode, errorBody{Code: appErr.Code, Message: appErr.Message}
	case errors.As(err, &fiberErr):
		return fiberErr.Code, errorBody{Code: "HTTP_ERROR", Message: fiberErr.Message}
	default:
		return domain.ErrInternal.StatusCode, errorBody{Code: domain.ErrInternal.Code, Message: domain.ErrInternal.Message}
	}
}
