package completion

import (
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

const questionPrompt = `
You are a helpful assistant. Use the following video transcript to answer the question.

Transcript:
{{.Context}}

Question:
{{.Question}}
`

// Template is a prompt with two slots, the transcript and the question.
type Template struct {
	tmpl *template.Template
}

type promptData struct {
	Context  string
	Question string
}

// DefaultTemplate returns the transcript question-answering prompt.
func DefaultTemplate() *Template {
	return &Template{tmpl: template.Must(template.New("question").Parse(questionPrompt))}
}

// NewTemplate parses a custom prompt. It may reference {{.Context}} and {{.Question}}.
func NewTemplate(text string) (*Template, error) {
	tmpl, err := template.New("question").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, errors.Wrap(err, "parse prompt template")
	}
	return &Template{tmpl: tmpl}, nil
}

// Render fills both slots verbatim.
func (t *Template) Render(context, question string) (string, error) {
	var b strings.Builder
	if err := t.tmpl.Execute(&b, promptData{Context: context, Question: question}); err != nil {
		return "", errors.Wrap(err, "render prompt")
	}
	return b.String(), nil
}
