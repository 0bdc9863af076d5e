package serverutils

import (
	"errors"

	"offline-llm-be/internal/session"
	"offline-llm-be/pkg/embedding"
	"offline-llm-be/pkg/ingestion"
	"offline-llm-be/pkg/llm"
	"offline-llm-be/pkg/llm/safechat"
	"offline-llm-be/pkg/rerank"
	"offline-llm-be/pkg/store"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts domain errors bubbling out of handlers into
// their HTTP status. Anything unclassified is a 500 with a generic message so
// internals never leak to clients.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		code := classify(err)
		message := err.Error()
		if code == fiber.StatusInternalServerError {
			message = "Internal server error"
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

func classify(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ingestion.ErrNoExtractableText):
		return fiber.StatusBadRequest
	case errors.Is(err, store.ErrEmptyCollection):
		return fiber.StatusConflict
	case errors.Is(err, embedding.ErrUnavailable), errors.Is(err, rerank.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, safechat.ErrModelLoadTimeout):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, llm.ErrUpstream):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
