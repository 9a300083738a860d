package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: turn produced an empty reply", contractx.ErrValidation)
	}
	return GraphOutput{
		Reply:         reply,
		Decision:      in.Decision,
		Failed:        in.HandlerErr != nil,
		CorrelationID: in.CorrelationID,
		Phases:        append([]Phase(nil), in.Phases...),
	}, nil
}
