package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voxlane/call-bridge-go/internal/repository"
)

// StaleCallSweeper marks pending outbound records that never produced a leg or
// a completion event as no-answer. Left alone they stay eligible for the
// reconciliation matcher's phone-number fallback indefinitely.
type StaleCallSweeper struct {
	calls    repository.CallRepository
	maxAge   time.Duration
	interval time.Duration
	done     chan struct{}
}

func NewStaleCallSweeper(calls repository.CallRepository, maxAge, interval time.Duration) *StaleCallSweeper {
	return &StaleCallSweeper{
		calls:    calls,
		maxAge:   maxAge,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *StaleCallSweeper) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Dur("max_age", j.maxAge).Msg("stale call sweeper started")
}

func (j *StaleCallSweeper) Stop() {
	close(j.done)
	log.Info().Msg("stale call sweeper stopped")
}

func (j *StaleCallSweeper) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *StaleCallSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := j.calls.MarkStalePendingNoAnswer(ctx, time.Now().Add(-j.maxAge))
	if err != nil {
		log.Error().Err(err).Msg("stale call sweep failed")
		return
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("stale pending calls marked no-answer")
	}
}
