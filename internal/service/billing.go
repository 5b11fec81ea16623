package service

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/voxlane/call-bridge-go/internal/repository"
)

// BillingResult reports one per-call debit attempt. AlreadyDeducted implies
// Success; the second delivery of a completion event must be a no-op.
type BillingResult struct {
	Success         bool
	AlreadyDeducted bool
	Credits         float64
}

// CreditLedger is the billing contract the completion processor consumes.
type CreditLedger interface {
	Deduct(ctx context.Context, userID, callID string, durationSeconds int, pricePerMinute float64) (BillingResult, error)
}

// CreditsToDeduct prices a call: minutes are rounded up, and a zero or invalid
// configured price falls back to 1 credit per minute.
func CreditsToDeduct(durationSeconds int, pricePerMinute float64) float64 {
	if durationSeconds <= 0 {
		return 0
	}
	if pricePerMinute <= 0 || math.IsNaN(pricePerMinute) || math.IsInf(pricePerMinute, 0) {
		pricePerMinute = 1
	}
	minutes := (durationSeconds + 59) / 60
	return float64(minutes) * pricePerMinute
}

// CreditService is the SQL-backed ledger.
type CreditService struct {
	ledger repository.LedgerRepository
}

func NewCreditService(ledger repository.LedgerRepository) *CreditService {
	return &CreditService{ledger: ledger}
}

func (s *CreditService) Deduct(ctx context.Context, userID, callID string, durationSeconds int, pricePerMinute float64) (BillingResult, error) {
	credits := CreditsToDeduct(durationSeconds, pricePerMinute)
	if credits == 0 {
		log.Debug().Str("call_id", callID).Msg("zero-duration call, nothing to bill")
		return BillingResult{Success: true}, nil
	}

	outcome, err := s.ledger.DeductForCall(ctx, userID, callID, credits)
	if err != nil {
		return BillingResult{}, err
	}

	if outcome.AlreadyDeducted {
		log.Debug().Str("call_id", callID).Msg("credits already deducted for call")
	} else {
		log.Info().
			Str("call_id", callID).
			Str("user_id", userID).
			Float64("credits", credits).
			Msg("credits deducted")
	}

	return BillingResult{
		Success:         outcome.Success,
		AlreadyDeducted: outcome.AlreadyDeducted,
		Credits:         credits,
	}, nil
}
