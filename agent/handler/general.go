package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
	llmx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/llm"
	promptx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/prompt"
)

// GeneralHandler carries on open conversation over the session history.
type GeneralHandler struct {
	completer contractx.Completer
	prompts   promptx.PromptSet
	params    contractx.CompletionParams
}

var _ contractx.Handler = (*GeneralHandler)(nil)

func NewGeneralHandler(completer contractx.Completer, params contractx.CompletionParams) (*GeneralHandler, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	return &GeneralHandler{
		completer: completer,
		prompts:   promptx.LoadPromptSet(),
		params:    params,
	}, nil
}

func (h *GeneralHandler) Handle(ctx context.Context, in contractx.HandlerInput, ictx contractx.InvocationContext) (contractx.HandlerResult, error) {
	input := strings.TrimSpace(in.Fields[contractx.FieldInput])
	if input == "" {
		return contractx.HandlerResult{}, fmt.Errorf("%w: default handler needs an input", contractx.ErrValidation)
	}

	p, err := promptx.Render(ctx, "general", h.prompts.General, map[string]any{
		"History": promptx.FormatHistory(ictx.History),
		"Input":   input,
	})
	if err != nil {
		return contractx.HandlerResult{}, err
	}

	reply, err := h.completer.Complete(ctx, p, llmx.MergeParams(h.params, ictx.Params))
	if err != nil {
		return contractx.HandlerResult{}, fmt.Errorf("converse: %w", err)
	}
	return contractx.HandlerResult{Text: strings.TrimSpace(reply)}, nil
}
