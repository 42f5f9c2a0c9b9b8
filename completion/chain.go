package completion

import (
	"context"

	"github.com/pkg/errors"
)

// Chain renders the prompt template and passes it to a Completer.
type Chain struct {
	template  *Template
	completer Completer
}

func NewChain(tmpl *Template, completer Completer) *Chain {
	if tmpl == nil {
		tmpl = DefaultTemplate()
	}
	return &Chain{template: tmpl, completer: completer}
}

// Run sends the whole transcript as context. It is not truncated or summarized.
func (c *Chain) Run(ctx context.Context, transcript, question string) (string, error) {
	prompt, err := c.template.Render(transcript, question)
	if err != nil {
		return "", err
	}

	answer, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		return "", errors.WithMessage(err, "completion")
	}
	return answer, nil
}
