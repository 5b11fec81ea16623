package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/voxlane/call-bridge-go/internal/model"
)

type AgentRepository interface {
	FindByID(ctx context.Context, id string) (*model.Agent, error)
	FindByEngineAgentID(ctx context.Context, engineAgentID string) (*model.Agent, error)
}

type agentRepo struct {
	db *sqlx.DB
}

func NewAgentRepository(db *sqlx.DB) AgentRepository {
	return &agentRepo{db: db}
}

func (r *agentRepo) FindByID(ctx context.Context, id string) (*model.Agent, error) {
	var agent model.Agent
	err := r.db.GetContext(ctx, &agent, `SELECT * FROM agents WHERE id = $1`, id)
	return HandleNotFound(&agent, err)
}

func (r *agentRepo) FindByEngineAgentID(ctx context.Context, engineAgentID string) (*model.Agent, error) {
	var agent model.Agent
	err := r.db.GetContext(ctx, &agent, `
		SELECT * FROM agents WHERE engine_agent_id = $1
	`, engineAgentID)
	return HandleNotFound(&agent, err)
}
