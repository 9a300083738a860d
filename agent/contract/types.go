package contract

import (
	"strings"
	"time"
)

type Destination string

const (
	DestinationSQL     Destination = "sql"
	DestinationRAG     Destination = "rag"
	DestinationAction  Destination = "action"
	DestinationDefault Destination = "default"
)

// Destinations lists every routable destination in catalog order.
func Destinations() []Destination {
	return []Destination{DestinationSQL, DestinationRAG, DestinationAction, DestinationDefault}
}

func (d Destination) Valid() bool {
	switch d {
	case DestinationSQL, DestinationRAG, DestinationAction, DestinationDefault:
		return true
	default:
		return false
	}
}

// ParseDestination matches a registered destination name case-insensitively.
func ParseDestination(s string) (Destination, bool) {
	d := Destination(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", false
	}
	return d, true
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one immutable entry of a session history.
type Turn struct {
	ID            string      `json:"id"`
	Role          Role        `json:"role"`
	Content       string      `json:"content"`
	Destination   Destination `json:"destination,omitempty"`
	Raw           string      `json:"raw,omitempty"`
	Failed        bool        `json:"failed,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Fallback reasons reported on forced default decisions.
const (
	ReasonCompletionFailed     = "completion_failed"
	ReasonExtractionFailed     = "extraction_failed"
	ReasonMissingDestination   = "missing_destination"
	ReasonUnknownDestination   = "unknown_destination"
	ReasonAmbiguousDestination = "ambiguous_destination"
)

// RoutingDecision is the router's verdict for one utterance. A Forced
// decision always targets DestinationDefault and carries the utterance as
// NextInput.
type RoutingDecision struct {
	Destination    Destination `json:"destination"`
	NextInput      string      `json:"next_input"`
	Forced         bool        `json:"forced,omitempty"`
	Reason         string      `json:"reason,omitempty"`
	RawDestination string      `json:"raw_destination,omitempty"`
}

// Input field names produced by the parameter transformer.
const (
	FieldInput    = "input"
	FieldQuery    = "query"
	FieldQuestion = "question"
)

type HandlerInput struct {
	Destination Destination
	Fields      map[string]string
}

// Value returns the single shaped value regardless of its key.
func (in HandlerInput) Value() string {
	for _, key := range []string{FieldQuery, FieldQuestion, FieldInput} {
		if v, ok := in.Fields[key]; ok {
			return v
		}
	}
	return ""
}

// CompletionParams are the per-turn completion overrides supplied by the caller.
type CompletionParams struct {
	Model       string   `json:"model,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// InvocationContext is owned by the dispatch engine for a single turn.
type InvocationContext struct {
	SessionID     string
	CorrelationID string
	History       []Turn
	Params        CompletionParams
}

type Row = map[string]any

type Document struct {
	Content string  `json:"content"`
	Source  string  `json:"source,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// HandlerResult is what a handler hands back to the dispatch engine.
type HandlerResult struct {
	Text string
	Raw  string
}
