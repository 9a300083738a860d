package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
	statex "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/state"
)

// LoadHistory reads the session history the turn is evaluated against.
func LoadHistory(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.enter(PhaseReceived)

	history, err := store.ReadAll(ctx, in.SessionID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", contractx.ErrCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("%w: read session=%s: %w", contractx.ErrPersistence, in.SessionID, err)
	}
	in.History = history
	return in, nil
}
