package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/voxlane/call-bridge-go/internal/model"
)

type CampaignRepository interface {
	FindByID(ctx context.Context, id string) (*model.Campaign, error)
	FindMostRecentStartedByAgentID(ctx context.Context, agentID string) (*model.Campaign, error)
}

type campaignRepo struct {
	db *sqlx.DB
}

func NewCampaignRepository(db *sqlx.DB) CampaignRepository {
	return &campaignRepo{db: db}
}

func (r *campaignRepo) FindByID(ctx context.Context, id string) (*model.Campaign, error) {
	var campaign model.Campaign
	err := r.db.GetContext(ctx, &campaign, `SELECT * FROM campaigns WHERE id = $1`, id)
	return HandleNotFound(&campaign, err)
}

func (r *campaignRepo) FindMostRecentStartedByAgentID(ctx context.Context, agentID string) (*model.Campaign, error) {
	var campaign model.Campaign
	err := r.db.GetContext(ctx, &campaign, `
		SELECT * FROM campaigns
		WHERE agent_id = $1 AND started_at IS NOT NULL
		ORDER BY started_at DESC
		LIMIT 1
	`, agentID)
	return HandleNotFound(&campaign, err)
}
