package service

import (
	"context"

	"rulecard-service/internal/config"
	"rulecard-service/internal/service/agent"
	"rulecard-service/internal/service/game"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Agent *agent.Service
	Game  *game.Service
}

func NewContainer(db *gorm.DB, rdb *redis.Client) *Container {
	var transport agent.Transport
	if cfg := config.GlobalConfig; cfg != nil {
		transport = agent.NewGeminiTransport(cfg.Agent)
	}
	agentSvc := agent.NewService(transport)
	return &Container{
		Agent: agentSvc,
		Game:  game.NewService(db, rdb, agentSvc),
	}
}

func (c *Container) Start(ctx context.Context) error {
	c.Game.Start(ctx)
	return nil
}

func (c *Container) Shutdown(ctx context.Context) {
	c.Game.Shutdown(ctx)
}
