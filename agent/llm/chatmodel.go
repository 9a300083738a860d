package llm

import (
	"context"
	"errors"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
)

// ChatModelCompleter adapts an eino chat model to contract.Completer.
type ChatModelCompleter struct {
	model    einomodel.BaseChatModel
	defaults contractx.CompletionParams
}

var _ contractx.Completer = (*ChatModelCompleter)(nil)

func NewChatModelCompleter(m einomodel.BaseChatModel, defaults contractx.CompletionParams) (*ChatModelCompleter, error) {
	if m == nil {
		return nil, errors.New("chat model is required")
	}
	return &ChatModelCompleter{model: m, defaults: defaults}, nil
}

func (c *ChatModelCompleter) Complete(ctx context.Context, prompt string, params contractx.CompletionParams) (string, error) {
	p := MergeParams(c.defaults, params)

	var opts []einomodel.Option
	if p.Model != "" {
		opts = append(opts, einomodel.WithModel(p.Model))
	}
	if p.MaxTokens > 0 {
		opts = append(opts, einomodel.WithMaxTokens(p.MaxTokens))
	}
	if p.Temperature != nil {
		opts = append(opts, einomodel.WithTemperature(*p.Temperature))
	}
	if len(p.Stop) > 0 {
		opts = append(opts, einomodel.WithStop(p.Stop))
	}

	msg, err := c.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)}, opts...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %w", contractx.ErrModelInvoke, ctxErr)
		}
		return "", fmt.Errorf("%w: %w: %v", contractx.ErrModelInvoke, contractx.ErrTransient, err)
	}
	if msg == nil {
		return "", fmt.Errorf("%w: %w: empty model response", contractx.ErrModelInvoke, contractx.ErrPermanent)
	}
	return msg.Content, nil
}
