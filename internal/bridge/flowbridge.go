package bridge

import "context"

// FlowBridge maps conversation progress onto a visual node graph and emits the
// next instruction text. It is an external collaborator; the relay only
// consumes this surface.
type FlowBridge interface {
	// ProcessUserResponse advances the graph with the caller's utterance and
	// returns the next contextual instruction, or "" when none is needed.
	ProcessUserResponse(ctx context.Context, callID, utterance string) (string, error)

	// GenerateContextualUpdate returns an instruction for the current node
	// without consuming user input. Used by the deferred post-initiation check,
	// which covers bridges that auto-advance through non-interactive nodes
	// before the first turn.
	GenerateContextualUpdate(ctx context.Context, callID string) (string, error)

	// HasFlowEnded reports whether the graph reached a terminal node.
	HasFlowEnded(ctx context.Context, callID string) bool
}
