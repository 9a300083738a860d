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
)

// RAGHandler answers from retrieved documents only.
type RAGHandler struct {
	completer contractx.Completer
	retriever contractx.Retriever
	prompts   promptx.PromptSet
	params    contractx.CompletionParams
}

var _ contractx.Handler = (*RAGHandler)(nil)

func NewRAGHandler(completer contractx.Completer, retriever contractx.Retriever, params contractx.CompletionParams) (*RAGHandler, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if retriever == nil {
		return nil, errors.New("retriever is required")
	}
	return &RAGHandler{
		completer: completer,
		retriever: retriever,
		prompts:   promptx.LoadPromptSet(),
		params:    params,
	}, nil
}

func (h *RAGHandler) Handle(ctx context.Context, in contractx.HandlerInput, ictx contractx.InvocationContext) (contractx.HandlerResult, error) {
	question := strings.TrimSpace(in.Fields[contractx.FieldQuestion])
	if question == "" {
		return contractx.HandlerResult{}, fmt.Errorf("%w: rag handler needs a question", contractx.ErrValidation)
	}

	docs, err := h.retriever.Retrieve(ctx, question)
	if err != nil {
		return contractx.HandlerResult{}, fmt.Errorf("retrieve documents: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Int("documents", len(docs)).Msg("retrieved context")

	contextPrompt, err := promptx.Render(ctx, "retrieval", h.prompts.Retrieval, map[string]any{
		"Documents": docs,
		"Question":  question,
	})
	if err != nil {
		return contractx.HandlerResult{}, err
	}

	answer, err := h.completer.Complete(ctx, contextPrompt, llmx.MergeParams(h.params, ictx.Params))
	if err != nil {
		return contractx.HandlerResult{}, fmt.Errorf("answer from context: %w", err)
	}

	return contractx.HandlerResult{
		Text: strings.TrimSpace(answer),
		Raw:  sourcesJSON(docs),
	}, nil
}

// sourcesJSON keeps the locators of the documents an answer was built from.
func sourcesJSON(docs []contractx.Document) string {
	sources := make([]string, 0, len(docs))
	for _, d := range docs {
		if s := strings.TrimSpace(d.Source); s != "" {
			sources = append(sources, s)
		}
	}
	raw, err := json.Marshal(map[string][]string{"sources": sources})
	if err != nil {
		return ""
	}
	return string(raw)
}
