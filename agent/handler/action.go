package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
	llmx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/llm"
	promptx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/prompt"
	toolx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/tool"
)

// ActionHandler extracts a device action, performs it, notifies and
// summarises the outcome in one sentence.
type ActionHandler struct {
	completer contractx.Completer
	execute   toolx.Executor
	notifier  contractx.Notifier
	prompts   promptx.PromptSet
	params    contractx.CompletionParams
}

var _ contractx.Handler = (*ActionHandler)(nil)

type actionRequest struct {
	Question string `json:"Question"`
	Action   string `json:"Action"`
	DeviceID string `json:"deviceID"`
}

// NewActionHandler builds the handler. notifier may be nil.
func NewActionHandler(
	completer contractx.Completer,
	actions contractx.ActionService,
	notifier contractx.Notifier,
	params contractx.CompletionParams,
) (*ActionHandler, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if actions == nil {
		return nil, errors.New("action service is required")
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &ActionHandler{
		completer: completer,
		execute:   toolx.NewExecutor(actions),
		notifier:  notifier,
		prompts:   promptx.LoadPromptSet(),
		params:    params,
	}, nil
}

func (h *ActionHandler) Handle(ctx context.Context, in contractx.HandlerInput, ictx contractx.InvocationContext) (contractx.HandlerResult, error) {
	input := strings.TrimSpace(in.Fields[contractx.FieldInput])
	if input == "" {
		return contractx.HandlerResult{}, fmt.Errorf("%w: action handler needs an input", contractx.ErrValidation)
	}
	params := llmx.MergeParams(h.params, ictx.Params)
	logger := zerolog.Ctx(ctx)

	extractPrompt, err := promptx.Render(ctx, "action_extract", h.prompts.ActionExtract, map[string]any{
		"Actions": toolx.Describe(),
		"Input":   input,
	})
	if err != nil {
		return contractx.HandlerResult{}, err
	}

	extracted, err := h.completer.Complete(ctx, extractPrompt, params)
	if err != nil {
		return contractx.HandlerResult{}, fmt.Errorf("extract action: %w", err)
	}

	req, err := parseActionRequest(extracted)
	if err != nil {
		return contractx.HandlerResult{}, err
	}

	outcome, err := h.execute(ctx, req.Action, req.DeviceID)
	if err != nil {
		return contractx.HandlerResult{}, fmt.Errorf("invoke action=%s device=%s: %w", req.Action, req.DeviceID, err)
	}
	logger.Info().Str("action", req.Action).Str("device_id", req.DeviceID).Msg("device action performed")

	subject := fmt.Sprintf("Action Performed: %s on Device %s", req.Action, req.DeviceID)
	body := fmt.Sprintf("Hello,\nThe device %s has been %s.", req.DeviceID, req.Action)
	if err := h.notifier.Notify(ctx, subject, body); err != nil {
		logger.Warn().Err(err).Str("action", req.Action).Msg("action notification failed")
	}

	summaryPrompt, err := promptx.Render(ctx, "action_summary", h.prompts.ActionSummary, map[string]any{
		"Outcome": outcome,
	})
	if err != nil {
		return contractx.HandlerResult{}, err
	}
	summary, err := h.completer.Complete(ctx, summaryPrompt, params)
	if err != nil {
		return contractx.HandlerResult{}, fmt.Errorf("summarise action: %w", err)
	}

	raw, _ := json.Marshal(map[string]string{
		"Action":   req.Action,
		"deviceID": req.DeviceID,
		"result":   outcome,
	})
	return contractx.HandlerResult{Text: strings.TrimSpace(summary), Raw: string(raw)}, nil
}

func parseActionRequest(text string) (actionRequest, error) {
	obj, ok := firstJSONObject(text)
	if !ok {
		return actionRequest{}, fmt.Errorf("%w: no action object in model output", contractx.ErrSchemaViolation)
	}

	var req actionRequest
	if err := json.Unmarshal([]byte(obj), &req); err != nil {
		return actionRequest{}, fmt.Errorf("%w: decode action object: %v", contractx.ErrSchemaViolation, err)
	}

	action, ok := toolx.Lookup(req.Action)
	if !ok {
		return actionRequest{}, fmt.Errorf("%w: action=%q is not in the catalog", contractx.ErrSchemaViolation, req.Action)
	}
	req.Action = action
	req.DeviceID = strings.TrimSpace(req.DeviceID)
	if req.DeviceID == "" {
		return actionRequest{}, fmt.Errorf("%w: action=%s has no device id", contractx.ErrSchemaViolation, action)
	}
	return req, nil
}

// firstJSONObject returns the first balanced {...} span, skipping braces
// inside string literals.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, string) error { return nil }
