package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
	statex "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/state"
)

// RecordTurn appends the user turn and its reply in one store call. A
// cancelled turn records nothing.
func RecordTurn(ctx context.Context, in *GraphState, store statex.Store, newID func() string) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", contractx.ErrCancelled, err)
	}

	user := contractx.Turn{
		ID:            newID(),
		Role:          contractx.RoleUser,
		Content:       in.Text,
		CorrelationID: in.CorrelationID,
		CreatedAt:     in.Now,
	}
	assistant := contractx.Turn{
		ID:            newID(),
		Role:          contractx.RoleAssistant,
		Content:       in.Reply,
		Destination:   in.Decision.Destination,
		Raw:           in.Result.Raw,
		Failed:        in.HandlerErr != nil,
		CorrelationID: in.CorrelationID,
		CreatedAt:     in.Now,
	}

	if err := store.Append(ctx, in.SessionID, user, assistant); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", contractx.ErrCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("%w: append session=%s: %w", contractx.ErrPersistence, in.SessionID, err)
	}

	in.enter(PhaseRecorded)
	return in, nil
}
