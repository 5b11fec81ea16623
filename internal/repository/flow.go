package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/voxlane/call-bridge-go/internal/model"
)

type FlowExecutionRepository interface {
	FindByCallID(ctx context.Context, callID string) (*model.FlowExecution, error)
	MarkRunning(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, variables model.Variables, pathTaken []string) error
	MarkFailed(ctx context.Context, id string) error
}

type flowExecutionRepo struct {
	db *sqlx.DB
}

func NewFlowExecutionRepository(db *sqlx.DB) FlowExecutionRepository {
	return &flowExecutionRepo{db: db}
}

func (r *flowExecutionRepo) FindByCallID(ctx context.Context, callID string) (*model.FlowExecution, error) {
	var exec model.FlowExecution
	err := r.db.GetContext(ctx, &exec, `
		SELECT * FROM flow_executions WHERE call_id = $1
	`, callID)
	return HandleNotFound(&exec, err)
}

func (r *flowExecutionRepo) MarkRunning(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE flow_executions SET
			status = 'running',
			started_at = COALESCE(started_at, NOW())
		WHERE id = $1
	`, id)
	return err
}

func (r *flowExecutionRepo) Complete(ctx context.Context, id string, variables model.Variables, pathTaken []string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE flow_executions SET
			status = 'completed',
			variables = variables || $2,
			path_taken = CASE WHEN cardinality(path_taken) = 0 THEN $3 ELSE path_taken END,
			completed_at = NOW()
		WHERE id = $1
	`, id, variables, pq.StringArray(pathTaken))
	return err
}

func (r *flowExecutionRepo) MarkFailed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE flow_executions SET status = 'failed', completed_at = NOW() WHERE id = $1
	`, id)
	return err
}
