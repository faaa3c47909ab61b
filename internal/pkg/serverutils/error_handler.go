package serverutils

import (
	"context"
	"errors"

	"vlm-search-agent/pkg/agent"
	"vlm-search-agent/pkg/imaging"
	"vlm-search-agent/pkg/retriever"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error from the agent pipeline to an HTTP status.
// Anything unrecognized came from a model or page backend, hence 502.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, imaging.ErrInvalidURL):
		return fiber.StatusBadRequest
	case errors.Is(err, retriever.ErrNoEvidence):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, agent.ErrBusy):
		return fiber.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusBadGateway
	}
}

func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		code := StatusFor(err)
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}
