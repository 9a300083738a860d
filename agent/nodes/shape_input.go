package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
	transformx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/transform"
)

// ShapeInput rekeys the decision for its destination. A destination without
// a shape is reported and becomes a handler failure for this turn.
func ShapeInput(ctx context.Context, in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	shaped, err := transformx.Transform(in.Decision.Destination, in.Decision, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("destination", string(in.Decision.Destination)).Msg("input shaping failed")
		in.HandlerErr = fmt.Errorf("%w: %w", contractx.ErrHandlerFailure, err)
	}
	in.Input = shaped
	in.enter(PhaseTransformed)
	return in, nil
}
