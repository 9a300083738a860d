package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
	routerx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/router"
)

type Classifier interface {
	Route(ctx context.Context, req routerx.Request) contractx.RoutingDecision
}

func Classify(ctx context.Context, in *GraphState, classifier Classifier) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Decision = classifier.Route(ctx, routerx.Request{
		SessionID: in.SessionID,
		Utterance: in.Text,
		History:   copyTurns(in.History),
		Params:    in.Params,
	})
	in.enter(PhaseClassified)
	return in, nil
}

func copyTurns(turns []contractx.Turn) []contractx.Turn {
	return append([]contractx.Turn(nil), turns...)
}
