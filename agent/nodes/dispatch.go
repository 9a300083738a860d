package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
)

func Dispatch(ctx context.Context, in *GraphState, handlers contractx.Handler) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if in.HandlerErr == nil {
		result, err := handlers.Handle(ctx, in.Input, contractx.InvocationContext{
			SessionID:     in.SessionID,
			CorrelationID: in.CorrelationID,
			History:       copyTurns(in.History),
			Params:        in.Params,
		})
		in.Result = result
		if err != nil {
			in.HandlerErr = err
		} else if strings.TrimSpace(result.Text) == "" {
			in.HandlerErr = fmt.Errorf("%w: %s handler returned an empty reply", contractx.ErrHandlerFailure, in.Decision.Destination)
		}
	}

	if in.HandlerErr != nil {
		zerolog.Ctx(ctx).Error().Err(in.HandlerErr).Str("destination", string(in.Decision.Destination)).Msg("handler failed")
		in.Reply = FailureReply(in.Decision.Destination, in.HandlerErr)
	} else {
		in.Reply = strings.TrimSpace(in.Result.Text)
	}

	in.enter(PhaseDispatched)
	return in, nil
}

// FailureReply is the user-visible text recorded for a failed handler.
func FailureReply(dest contractx.Destination, err error) string {
	return fmt.Sprintf("Sorry, I couldn't complete that %s request: %v", dest, err)
}
