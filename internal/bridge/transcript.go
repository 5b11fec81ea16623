package bridge

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/voxlane/call-bridge-go/internal/model"
	"github.com/voxlane/call-bridge-go/internal/repository"
	"github.com/voxlane/call-bridge-go/internal/service"
)

// Assembler turns the session's accumulated turns into a stored transcript.
// The vendor's own completion event carries an authoritative transcript, so
// the locally reconstructed one only lands when nothing meaningful is stored.
type Assembler struct {
	calls repository.CallRepository
}

func NewAssembler(calls repository.CallRepository) *Assembler {
	return &Assembler{calls: calls}
}

// Persist writes the reconstructed transcript and, when the write landed and
// no rating is set yet, derives a lead rating from the same turns.
func (a *Assembler) Persist(ctx context.Context, callID string, turns []model.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	wrote, err := a.calls.UpdateTranscriptIfNotMeaningful(ctx, callID, model.FormatTurns(turns))
	if err != nil {
		return err
	}
	if !wrote {
		log.Debug().Str("call_id", callID).Msg("meaningful transcript already stored, keeping it")
		return nil
	}

	rating := service.ClassifyLead(turns)
	if err := a.calls.SetLeadRatingIfEmpty(ctx, callID, rating); err != nil {
		log.Warn().Err(err).Str("call_id", callID).Msg("failed to store lead rating")
	}

	log.Info().
		Str("call_id", callID).
		Int("turns", len(turns)).
		Str("lead_rating", string(rating)).
		Msg("transcript persisted")
	return nil
}
