// Package router classifies an utterance against the intent catalog with a
// single completion call.
package router

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
	decisionx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/decision"
	llmx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/llm"
	promptx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/prompt"
)

type Request struct {
	SessionID string
	Utterance string
	History   []contractx.Turn
	Params    contractx.CompletionParams
}

type Router struct {
	completer contractx.Completer
	intents   []promptx.Intent
	template  string
	params    contractx.CompletionParams
}

func New(completer contractx.Completer, intents []promptx.Intent, params contractx.CompletionParams) (*Router, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if len(intents) == 0 {
		return nil, errors.New("intent catalog is empty")
	}
	return &Router{
		completer: completer,
		intents:   append([]promptx.Intent(nil), intents...),
		template:  promptx.LoadPromptSet().Router,
		params:    params,
	}, nil
}

// Route never fails. Anything short of a single recognised destination
// yields a forced default decision carrying the original utterance.
func (r *Router) Route(ctx context.Context, req Request) contractx.RoutingDecision {
	logger := zerolog.Ctx(ctx)

	p, err := promptx.Render(ctx, "router", r.template, map[string]any{
		"Intents":  r.intents,
		"History":  promptx.FormatHistory(req.History),
		"Question": req.Utterance,
	})
	if err != nil {
		return r.forced(ctx, req, contractx.ReasonCompletionFailed, "", err)
	}

	raw, err := r.completer.Complete(ctx, p, llmx.MergeParams(r.params, req.Params))
	if err != nil {
		return r.forced(ctx, req, contractx.ReasonCompletionFailed, "", err)
	}

	d, err := decisionx.Extract(raw)
	if err != nil {
		return r.forced(ctx, req, contractx.ReasonExtractionFailed, "", err)
	}
	if !d.HasDestination {
		return r.forced(ctx, req, contractx.ReasonMissingDestination, "", nil)
	}

	dest, reason := Resolve(d.Destination)
	if reason != "" {
		var cause error
		if reason == contractx.ReasonAmbiguousDestination {
			cause = contractx.ErrClassificationAmbiguous
		}
		return r.forced(ctx, req, reason, d.Destination, cause)
	}

	next := req.Utterance
	if d.HasNextInput && strings.TrimSpace(d.NextInput) != "" {
		next = d.NextInput
	}

	logger.Debug().Str("destination", string(dest)).Msg("utterance routed")
	return contractx.RoutingDecision{
		Destination:    dest,
		NextInput:      next,
		RawDestination: d.Destination,
	}
}

func (r *Router) forced(ctx context.Context, req Request, reason string, rawDest string, cause error) contractx.RoutingDecision {
	evt := zerolog.Ctx(ctx).Warn().Str("reason", reason)
	if rawDest != "" {
		evt = evt.Str("raw_destination", rawDest)
	}
	if cause != nil {
		evt = evt.Err(cause)
	}
	evt.Msg("routing fell back to default")

	return contractx.RoutingDecision{
		Destination:    contractx.DestinationDefault,
		NextInput:      req.Utterance,
		Forced:         true,
		Reason:         reason,
		RawDestination: rawDest,
	}
}

// Resolve maps model destination text to a registered destination. An exact
// case-insensitive match wins; otherwise the registered names appearing as
// whole words decide, and anything but exactly one such name fails.
func Resolve(text string) (contractx.Destination, string) {
	if d, ok := contractx.ParseDestination(text); ok {
		return d, ""
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	found := map[contractx.Destination]bool{}
	for _, w := range words {
		if d, ok := contractx.ParseDestination(w); ok {
			found[d] = true
		}
	}

	switch len(found) {
	case 0:
		return "", contractx.ReasonUnknownDestination
	case 1:
		for d := range found {
			return d, ""
		}
	}
	return "", contractx.ReasonAmbiguousDestination
}
