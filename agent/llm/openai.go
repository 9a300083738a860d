package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
)

// OpenAICompleter sends single-message chat completions through an
// OpenAI-compatible endpoint.
type OpenAICompleter struct {
	client   *openaisdk.Client
	defaults contractx.CompletionParams
}

var _ contractx.Completer = (*OpenAICompleter)(nil)

func NewOpenAICompleter(client *openaisdk.Client, defaults contractx.CompletionParams) (*OpenAICompleter, error) {
	if client == nil {
		return nil, errors.New("openai client is required")
	}
	return &OpenAICompleter{client: client, defaults: defaults}, nil
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string, params contractx.CompletionParams) (string, error) {
	p := MergeParams(c.defaults, params)
	if strings.TrimSpace(p.Model) == "" {
		return "", fmt.Errorf("%w: model is required", contractx.ErrValidation)
	}

	req := openaisdk.ChatCompletionNewParams{
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(prompt),
		},
		Model: openaisdk.ChatModel(p.Model),
	}
	if p.MaxTokens > 0 {
		req.MaxTokens = openaisdk.Int(int64(p.MaxTokens))
	}
	if p.Temperature != nil {
		req.Temperature = openaisdk.Float(float64(*p.Temperature))
	}

	var opts []option.RequestOption
	if len(p.Stop) > 0 {
		opts = append(opts, option.WithJSONSet("stop", p.Stop))
	}

	resp, err := c.client.Chat.Completions.New(ctx, req, opts...)
	if err != nil {
		return "", classify(ctx, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %w: completion returned no choices", contractx.ErrModelInvoke, contractx.ErrPermanent)
	}
	return resp.Choices[0].Message.Content, nil
}

// classify tags an upstream failure as transient or permanent.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", contractx.ErrModelInvoke, ctxErr)
	}

	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %w: status=%d: %v", contractx.ErrModelInvoke, contractx.ErrTransient, apiErr.StatusCode, err)
		}
		return fmt.Errorf("%w: %w: status=%d: %v", contractx.ErrModelInvoke, contractx.ErrPermanent, apiErr.StatusCode, err)
	}
	// No response at all: timeouts and transport errors.
	return fmt.Errorf("%w: %w: %v", contractx.ErrModelInvoke, contractx.ErrTransient, err)
}
