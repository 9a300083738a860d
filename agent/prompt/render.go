package prompt

import (
	"context"
	"fmt"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
)

// Render formats a Go template prompt with vars and returns the resulting text.
func Render(ctx context.Context, name string, tpl string, vars map[string]any) (string, error) {
	if strings.TrimSpace(tpl) == "" {
		return "", fmt.Errorf("%w: prompt=%s", contractx.ErrPromptMissing, name)
	}

	template := einoprompt.FromMessages(schema.GoTemplate, schema.UserMessage(tpl))
	msgs, err := template.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%w: render prompt=%s: %v", contractx.ErrValidation, name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%w: prompt=%s rendered empty", contractx.ErrPromptMissing, name)
	}
	return strings.TrimSpace(msgs[0].Content), nil
}

// FormatHistory renders turns as role-labelled lines, oldest first.
func FormatHistory(turns []contractx.Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(t.Content))
	}
	return b.String()
}
