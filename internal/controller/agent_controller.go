package controller

import (
	"errors"

	"vlm-search-agent/internal/dto"
	"vlm-search-agent/internal/pkg/serverutils"
	"vlm-search-agent/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAgentController interface {
	RegisterRoutes(r fiber.Router)
	Ask(ctx *fiber.Ctx) error
	ShowSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
}

type agentController struct {
	agentService service.IAgentService
	jwtSecret    string
}

func NewAgentController(agentService service.IAgentService, jwtSecret string) IAgentController {
	return &agentController{
		agentService: agentService,
		jwtSecret:    jwtSecret,
	}
}

func (c *agentController) RegisterRoutes(r fiber.Router) {
	auth := serverutils.NewJwtMiddleware(c.jwtSecret)
	h := r.Group("/agent/v1")
	h.Post("ask", auth, c.Ask)
	h.Get("sessions/:id", auth, c.ShowSession)
	h.Delete("sessions/:id", auth, c.DeleteSession)
}

func (c *agentController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.agentService.Ask(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success answer question", res))
}

func (c *agentController) ShowSession(ctx *fiber.Ctx) error {
	res, err := c.agentService.GetSession(ctx.UserContext(), ctx.Params("id"))
	if errors.Is(err, service.ErrSessionNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
	}
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show session", res))
}

func (c *agentController) DeleteSession(ctx *fiber.Ctx) error {
	err := c.agentService.DeleteSession(ctx.UserContext(), ctx.Params("id"))
	if errors.Is(err, service.ErrSessionNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
	}
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete session", nil))
}
