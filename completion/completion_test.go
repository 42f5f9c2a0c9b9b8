package completion

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nijaru/yt-tutor/config"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestDefaultTemplateRender(t *testing.T) {
	got, err := DefaultTemplate().Render("Hello world", "What is said?")
	require.NoError(t, err)

	want := "\nYou are a helpful assistant. Use the following video transcript to answer the question.\n\n" +
		"Transcript:\nHello world\n\nQuestion:\nWhat is said?\n"
	assert.Equal(t, want, got)
}

func TestTemplateRenderKeepsTextVerbatim(t *testing.T) {
	text := `<b>Tom & Jerry</b> {{.Question}} "quoted"`
	question := "what's <this>?"

	got, err := DefaultTemplate().Render(text, question)
	require.NoError(t, err)
	assert.Contains(t, got, "Transcript:\n"+text+"\n")
	assert.Contains(t, got, "Question:\n"+question+"\n")
}

func TestNewTemplate(t *testing.T) {
	tmpl, err := NewTemplate("{{.Question}} / {{.Context}}")
	require.NoError(t, err)

	got, err := tmpl.Render("ctx", "q")
	require.NoError(t, err)
	assert.Equal(t, "q / ctx", got)

	_, err = NewTemplate("{{.Question")
	assert.Error(t, err)
}

func testCompletionConfig(endpoint string) config.CompletionConfig {
	return config.CompletionConfig{
		Endpoint:    endpoint,
		Deployment:  "gpt-4o",
		APIVersion:  "2024-02-01",
		APIKey:      "secret",
		Temperature: 0.7,
		Timeout:     5 * time.Second,
	}
}

func TestAzureClientComplete(t *testing.T) {
	var (
		gotPath    string
		gotVersion string
		gotKey     string
		gotBody    chatRequest
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotVersion = r.URL.Query().Get("api-version")
		gotKey = r.Header.Get("api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"c1","choices":[{"index":0,"message":{"role":"assistant","content":"It says hello."},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":4,"total_tokens":14}}`)
	}))
	defer srv.Close()

	client := NewAzureClientWithHTTP(testCompletionConfig(srv.URL+"/"), srv.Client(), quietLogger())
	answer, err := client.Complete(context.Background(), "prompt text")

	require.NoError(t, err)
	assert.Equal(t, "It says hello.", answer)
	assert.Equal(t, "/openai/deployments/gpt-4o/chat/completions", gotPath)
	assert.Equal(t, "2024-02-01", gotVersion)
	assert.Equal(t, "secret", gotKey)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "user", gotBody.Messages[0].Role)
	assert.Equal(t, "prompt text", gotBody.Messages[0].Content)
	assert.Equal(t, 0.7, gotBody.Temperature)
}

func TestAzureClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:    "api error payload",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"code":"401","message":"Access denied due to invalid subscription key."}}`,
			wantErr: "Access denied",
		},
		{
			name:    "plain error body",
			status:  http.StatusTooManyRequests,
			body:    "slow down",
			wantErr: "returned 429: slow down",
		},
		{
			name:    "no choices",
			status:  http.StatusOK,
			body:    `{"choices":[]}`,
			wantErr: ErrEmptyAnswer.Error(),
		},
		{
			name:    "malformed json",
			status:  http.StatusOK,
			body:    `{"choices":`,
			wantErr: "decode completion response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			client := NewAzureClientWithHTTP(testCompletionConfig(srv.URL), srv.Client(), quietLogger())
			_, err := client.Complete(context.Background(), "p")

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAzureClientNotConfigured(t *testing.T) {
	client := NewAzureClient(config.CompletionConfig{}, quietLogger())
	_, err := client.Complete(context.Background(), "p")
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

type fakeCompleter struct {
	prompt string
	answer string
	err    error
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

func TestChainRun(t *testing.T) {
	fc := &fakeCompleter{answer: "42"}
	chain := NewChain(nil, fc)

	answer, err := chain.Run(context.Background(), "full transcript", "meaning?")
	require.NoError(t, err)
	assert.Equal(t, "42", answer)
	assert.Contains(t, fc.prompt, "Transcript:\nfull transcript\n")
	assert.Contains(t, fc.prompt, "Question:\nmeaning?\n")
}

func TestChainRunPropagatesError(t *testing.T) {
	upstream := errors.New("boom")
	chain := NewChain(DefaultTemplate(), &fakeCompleter{err: upstream})

	_, err := chain.Run(context.Background(), "t", "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, upstream))
}
