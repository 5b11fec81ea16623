package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/voxlane/call-bridge-go/internal/model"
)

type PhoneConnectionRepository interface {
	FindByID(ctx context.Context, id string) (*model.PhoneConnection, error)
	FindByAgentIDAndNumber(ctx context.Context, agentID, phoneNumber string) (*model.PhoneConnection, error)
	FindFirstByAgentID(ctx context.Context, agentID string) (*model.PhoneConnection, error)
}

type phoneConnectionRepo struct {
	db *sqlx.DB
}

func NewPhoneConnectionRepository(db *sqlx.DB) PhoneConnectionRepository {
	return &phoneConnectionRepo{db: db}
}

func (r *phoneConnectionRepo) FindByID(ctx context.Context, id string) (*model.PhoneConnection, error) {
	var conn model.PhoneConnection
	err := r.db.GetContext(ctx, &conn, `SELECT * FROM phone_connections WHERE id = $1`, id)
	return HandleNotFound(&conn, err)
}

func (r *phoneConnectionRepo) FindByAgentIDAndNumber(ctx context.Context, agentID, phoneNumber string) (*model.PhoneConnection, error) {
	var conn model.PhoneConnection
	err := r.db.GetContext(ctx, &conn, `
		SELECT * FROM phone_connections
		WHERE agent_id = $1 AND phone_number = $2
		LIMIT 1
	`, agentID, phoneNumber)
	return HandleNotFound(&conn, err)
}

func (r *phoneConnectionRepo) FindFirstByAgentID(ctx context.Context, agentID string) (*model.PhoneConnection, error) {
	var conn model.PhoneConnection
	err := r.db.GetContext(ctx, &conn, `
		SELECT * FROM phone_connections
		WHERE agent_id = $1
		ORDER BY created_at ASC
		LIMIT 1
	`, agentID)
	return HandleNotFound(&conn, err)
}
