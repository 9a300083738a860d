// Package transform shapes a routed utterance into the input each handler
// expects.
package transform

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
)

// Transform rekeys the decision's next input for dest. raw holds any extra
// fields carried alongside the decision; it is copied, never mutated.
//
//	sql      input -> query
//	rag      input -> question
//	action   input unchanged
//	default  input unchanged
func Transform(dest contractx.Destination, decision contractx.RoutingDecision, raw map[string]string) (contractx.HandlerInput, error) {
	fields := make(map[string]string, len(raw)+1)
	for k, v := range raw {
		fields[k] = v
	}
	fields[contractx.FieldInput] = decision.NextInput

	switch dest {
	case contractx.DestinationSQL:
		rekey(fields, contractx.FieldInput, contractx.FieldQuery)
	case contractx.DestinationRAG:
		rekey(fields, contractx.FieldInput, contractx.FieldQuestion)
	case contractx.DestinationAction, contractx.DestinationDefault:
	default:
		return contractx.HandlerInput{}, fmt.Errorf("%w: no input shape for destination=%q", contractx.ErrUnknownDestination, dest)
	}

	return contractx.HandlerInput{Destination: dest, Fields: fields}, nil
}

func rekey(fields map[string]string, from, to string) {
	fields[to] = fields[from]
	delete(fields, from)
}
