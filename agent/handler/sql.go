package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
	llmx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/llm"
	promptx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/prompt"
)

// SQLStop ends SQL generation before the model invents a result.
const SQLStop = "\nSQLResult:"

var (
	sqlFenceRe = regexp.MustCompile("(?is)```(?:sql)?\\s*(.*?)```")
	sqlTagRe   = regexp.MustCompile(`(?is)<sql>\s*(.*?)\s*</sql>`)
)

// SQLHandler turns a question into SQL, runs it and narrates the rows.
type SQLHandler struct {
	completer contractx.Completer
	queries   contractx.QueryService
	prompts   promptx.PromptSet
	params    contractx.CompletionParams
}

var _ contractx.Handler = (*SQLHandler)(nil)

func NewSQLHandler(completer contractx.Completer, queries contractx.QueryService, params contractx.CompletionParams) (*SQLHandler, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if queries == nil {
		return nil, errors.New("query service is required")
	}
	return &SQLHandler{
		completer: completer,
		queries:   queries,
		prompts:   promptx.LoadPromptSet(),
		params:    params,
	}, nil
}

func (h *SQLHandler) Handle(ctx context.Context, in contractx.HandlerInput, ictx contractx.InvocationContext) (contractx.HandlerResult, error) {
	question := strings.TrimSpace(in.Fields[contractx.FieldQuery])
	if question == "" {
		return contractx.HandlerResult{}, fmt.Errorf("%w: sql handler needs a query", contractx.ErrValidation)
	}
	params := llmx.MergeParams(h.params, ictx.Params)

	queryPrompt, err := promptx.Render(ctx, "sql_query", h.prompts.SQLQuery, map[string]any{
		"Schema": h.prompts.Schema,
		"Query":  question,
	})
	if err != nil {
		return contractx.HandlerResult{}, err
	}

	genParams := params
	genParams.Stop = []string{SQLStop}
	generated, err := h.completer.Complete(ctx, queryPrompt, genParams)
	if err != nil {
		return contractx.HandlerResult{}, fmt.Errorf("generate sql: %w", err)
	}

	sql := CleanSQL(generated)
	if sql == "" {
		return contractx.HandlerResult{}, fmt.Errorf("%w: model produced no sql", contractx.ErrSchemaViolation)
	}
	zerolog.Ctx(ctx).Debug().Str("sql", sql).Msg("generated sql")

	rows, err := h.queries.RunQuery(ctx, sql)
	if err != nil {
		return contractx.HandlerResult{Raw: sql}, fmt.Errorf("run query: %w", err)
	}

	response, err := json.Marshal(rows)
	if err != nil {
		return contractx.HandlerResult{Raw: sql}, fmt.Errorf("%w: encode rows: %v", contractx.ErrValidation, err)
	}

	answerPrompt, err := promptx.Render(ctx, "sql_answer", h.prompts.SQLAnswer, map[string]any{
		"Schema":   h.prompts.Schema,
		"Query":    question,
		"SQL":      sql,
		"Response": string(response),
	})
	if err != nil {
		return contractx.HandlerResult{Raw: sql}, err
	}

	answer, err := h.completer.Complete(ctx, answerPrompt, params)
	if err != nil {
		return contractx.HandlerResult{Raw: sql}, fmt.Errorf("narrate rows: %w", err)
	}
	return contractx.HandlerResult{Text: strings.TrimSpace(answer), Raw: sql}, nil
}

// CleanSQL strips fences, tags and labels models wrap around a statement.
func CleanSQL(s string) string {
	out := strings.TrimSpace(s)
	if m := sqlFenceRe.FindStringSubmatch(out); m != nil {
		out = m[1]
	} else if m := sqlTagRe.FindStringSubmatch(out); m != nil {
		out = m[1]
	}
	if i := strings.Index(out, "SQLResult:"); i >= 0 {
		out = out[:i]
	}
	out = strings.TrimSpace(out)
	for _, label := range []string{"SQLQuery:", "SQL Query:", "SQL:"} {
		if len(out) >= len(label) && strings.EqualFold(out[:len(label)], label) {
			out = strings.TrimSpace(out[len(label):])
		}
	}
	return strings.TrimSpace(out)
}
