// Package decision pulls a routing decision out of free-form model output.
package decision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
)

const fence = "```"

type FailureReason string

const (
	FailureNoFence           FailureReason = "no_fence"
	FailureUnterminatedFence FailureReason = "unterminated_fence"
	FailureEmptyBlock        FailureReason = "empty_block"
	FailureInvalidJSON       FailureReason = "invalid_json"
	FailureNotObject         FailureReason = "not_object"
)

// Failure reports why a model response could not be turned into a Decision.
type Failure struct {
	Reason FailureReason
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("extract decision: %s: %v", f.Reason, f.Err)
	}
	return fmt.Sprintf("extract decision: %s", f.Reason)
}

func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{contractx.ErrSchemaViolation}
	}
	return []error{contractx.ErrSchemaViolation, f.Err}
}

// Decision is the raw content of the fenced block. Destination is not
// checked against the registered set here.
type Decision struct {
	Destination    string
	HasDestination bool
	NextInput      string
	HasNextInput   bool
}

// Extract finds the first fenced block in raw and decodes it. A block may
// carry a language tag such as "json" right after the opening fence.
func Extract(raw string) (Decision, error) {
	body, reason := fencedBody(raw)
	if reason != "" {
		return Decision{}, &Failure{Reason: reason}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		var v any
		if json.Unmarshal([]byte(body), &v) == nil {
			return Decision{}, &Failure{Reason: FailureNotObject}
		}
		return Decision{}, &Failure{Reason: FailureInvalidJSON, Err: err}
	}
	if fields == nil {
		return Decision{}, &Failure{Reason: FailureNotObject}
	}

	var out Decision
	if v, ok := fields["destination"]; ok {
		if s, ok := decodeString(v); ok {
			out.Destination = strings.TrimSpace(s)
			out.HasDestination = out.Destination != ""
		}
	}
	if v, ok := fields["next_inputs"]; ok {
		out.NextInput, out.HasNextInput = decodeNextInputs(v)
	}
	return out, nil
}

func fencedBody(raw string) (string, FailureReason) {
	open := strings.Index(raw, fence)
	if open < 0 {
		return "", FailureNoFence
	}
	rest := skipLanguageTag(raw[open+len(fence):])

	end := strings.Index(rest, fence)
	if end < 0 {
		return "", FailureUnterminatedFence
	}

	body := strings.TrimSpace(rest[:end])
	if body == "" {
		return "", FailureEmptyBlock
	}
	return body, ""
}

// skipLanguageTag drops a leading word such as "json" or "JSON". JSON text
// never starts with a letter so any leading word is a tag.
func skipLanguageTag(s string) string {
	i := 0
	for i < len(s) && isTagByte(s[i]) {
		i++
	}
	return s[i:]
}

func isTagByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9', b == '_', b == '-', b == '+':
		return true
	default:
		return false
	}
}

func decodeString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// decodeNextInputs accepts a bare string or an object keyed by input,
// query or question.
func decodeNextInputs(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false
	}
	if s, ok := decodeString(trimmed); ok {
		return s, true
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return "", false
	}
	for _, key := range []string{contractx.FieldInput, contractx.FieldQuery, contractx.FieldQuestion} {
		if v, ok := obj[key]; ok {
			if s, ok := decodeString(v); ok {
				return s, true
			}
		}
	}
	if len(obj) == 1 {
		for _, v := range obj {
			if s, ok := decodeString(v); ok {
				return s, true
			}
		}
	}
	return "", false
}
