package bootstrap

import (
	"context"

	"vlm-search-agent/internal/config"
	"vlm-search-agent/internal/controller"
	"vlm-search-agent/internal/pkg/logger"
	"vlm-search-agent/internal/repository/memory"
	"vlm-search-agent/internal/service"

	"github.com/redis/go-redis/v9"
)

type Container struct {
	Logger logger.ILogger

	// Controllers
	AgentController  controller.IAgentController
	StreamController controller.IStreamController
	HealthController controller.IHealthController

	Factory *AgentFactory
	Redis   *redis.Client
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(logger.Options{
		FilePath: cfg.App.LogFilePath,
		JSON:     cfg.App.Environment == "production",
		Level:    cfg.App.LogLevel,
	})

	// 2. Infrastructure
	var factoryOpts []FactoryOption
	rdb := ConnectRedis(cfg, sysLogger)
	if rdb != nil {
		factoryOpts = append(factoryOpts, WithRedis(rdb))
	}

	factory, err := NewAgentFactory(cfg, sysLogger, factoryOpts...)
	if err != nil {
		return nil, err
	}

	// 3. Services
	sessionRepo := memory.NewSessionRepository()
	agentService := service.NewAgentService(sessionRepo, factory, sysLogger)

	// 4. Controllers
	return &Container{
		Logger:           sysLogger,
		AgentController:  controller.NewAgentController(agentService, cfg.App.JwtSecret),
		StreamController: controller.NewStreamController(agentService, cfg.App.JwtSecret, sysLogger),
		HealthController: controller.NewHealthController(sessionRepo),
		Factory:          factory,
		Redis:            rdb,
	}, nil
}

// ConnectRedis returns nil unless passages are kept in redis. A failed ping
// is only logged; the client reconnects on its next command.
func ConnectRedis(cfg *config.Config, log logger.ILogger) *redis.Client {
	if cfg.Agent.StoreKind != "redis" {
		return nil
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Warn("bootstrap", "failed to parse redis url, using direct addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Warn("bootstrap", "failed to connect to redis", map[string]interface{}{"error": err.Error()})
	}
	return rdb
}
