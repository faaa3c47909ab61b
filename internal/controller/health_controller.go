package controller

import (
	"vlm-search-agent/internal/pkg/serverutils"
	"vlm-search-agent/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// SessionCounter reports how many web sessions are alive.
type SessionCounter interface {
	Count() int
}

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	sessions SessionCounter
}

func NewHealthController(sessions SessionCounter) IHealthController {
	return &healthController{sessions: sessions}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/healthz", c.Health)
	r.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("ok", fiber.Map{
		"sessions": c.sessions.Count(),
	}))
}
