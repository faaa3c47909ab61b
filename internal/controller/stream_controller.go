package controller

import (
	"vlm-search-agent/internal/pkg/logger"
	"vlm-search-agent/internal/pkg/serverutils"
	"vlm-search-agent/internal/service"
	internalWS "vlm-search-agent/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type IStreamController interface {
	RegisterRoutes(r fiber.Router)
	Upgrade(ctx *fiber.Ctx) error
}

type streamController struct {
	agentService service.IAgentService
	jwtSecret    string
	logger       logger.ILogger
}

func NewStreamController(agentService service.IAgentService, jwtSecret string, log logger.ILogger) IStreamController {
	return &streamController{
		agentService: agentService,
		jwtSecret:    jwtSecret,
		logger:       log,
	}
}

func (c *streamController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/agent/v1")
	h.Get("ws", serverutils.NewJwtMiddleware(c.jwtSecret), c.Upgrade, websocket.New(c.serve))
}

// Upgrade rejects plain HTTP requests to the stream endpoint.
func (c *streamController) Upgrade(ctx *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(ctx) {
		return ctx.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (c *streamController) serve(conn *websocket.Conn) {
	c.logger.Info("websocket", "stream opened", map[string]interface{}{"remote": conn.RemoteAddr().String()})
	internalWS.ServeStream(conn, c.agentService, c.logger)
	c.logger.Info("websocket", "stream closed", map[string]interface{}{"remote": conn.RemoteAddr().String()})
}
