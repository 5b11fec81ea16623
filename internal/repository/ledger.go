package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/voxlane/call-bridge-go/internal/database"
)

// DeductOutcome reports the result of an idempotent per-call debit.
type DeductOutcome struct {
	Success         bool
	AlreadyDeducted bool
}

type LedgerRepository interface {
	// DeductForCall debits a user's credit balance for one call, exactly once.
	// The calls.credits_deducted flag is the idempotency guard: a second attempt
	// for the same call reports AlreadyDeducted without touching the balance.
	DeductForCall(ctx context.Context, userID, callID string, amount float64) (DeductOutcome, error)
}

type ledgerRepo struct {
	db *database.DB
}

func NewLedgerRepository(db *database.DB) LedgerRepository {
	return &ledgerRepo{db: db}
}

func (r *ledgerRepo) DeductForCall(ctx context.Context, userID, callID string, amount float64) (DeductOutcome, error) {
	var outcome DeductOutcome

	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE calls SET
				credits_deducted = TRUE,
				credits_amount = $2,
				updated_at = NOW()
			WHERE id = $1 AND credits_deducted = FALSE
		`, callID, amount)
		if err != nil {
			return fmt.Errorf("claim deduction: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			outcome.AlreadyDeducted = true
			outcome.Success = true
			return nil
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE users SET credits = credits - $2 WHERE id = $1 AND credits >= $2
		`, userID, amount)
		if err != nil {
			return fmt.Errorf("debit balance: %w", err)
		}
		n, err = res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			// Rolls back the claimed flag as well.
			return fmt.Errorf("insufficient credits for user %s", userID)
		}

		outcome.Success = true
		return nil
	})
	if err != nil {
		return DeductOutcome{}, err
	}
	return outcome, nil
}
