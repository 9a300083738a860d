package orchestratornode

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
)

var (
	ErrInvalidMessage = fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	ErrInvalidSession = fmt.Errorf("%w: session id is empty", contractx.ErrValidation)
)

// Phase names one state of the per-turn state machine.
type Phase string

const (
	PhaseReceived    Phase = "received"
	PhaseClassified  Phase = "classified"
	PhaseTransformed Phase = "transformed"
	PhaseDispatched  Phase = "dispatched"
	PhaseRecorded    Phase = "recorded"
)

type GraphInput struct {
	SessionID     string
	Text          string
	CorrelationID string
	Params        contractx.CompletionParams
}

type GraphOutput struct {
	Reply         string
	Decision      contractx.RoutingDecision
	Failed        bool
	CorrelationID string
	Phases        []Phase
}

type GraphState struct {
	SessionID     string
	Text          string
	CorrelationID string
	Params        contractx.CompletionParams
	Now           time.Time

	Phases  []Phase
	History []contractx.Turn

	Decision contractx.RoutingDecision
	Input    contractx.HandlerInput

	// HandlerErr is set when input shaping or the handler failed; the turn is
	// still recorded with an error-flagged reply.
	HandlerErr error
	Result     contractx.HandlerResult
	Reply      string
}

func (s *GraphState) enter(p Phase) {
	s.Phases = append(s.Phases, p)
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID:     sessionID,
		Text:          text,
		CorrelationID: in.CorrelationID,
		Params:        in.Params,
		Now:           nowFn().UTC(),
	}, nil
}
