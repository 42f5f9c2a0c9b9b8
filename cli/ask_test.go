package cli

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nijaru/yt-tutor/completion"
	"github.com/nijaru/yt-tutor/transcript"
	"github.com/nijaru/yt-tutor/tutor"
)

type oneTrack struct{}

func (oneTrack) LanguageCode() string { return "en" }
func (oneTrack) IsGenerated() bool    { return true }
func (oneTrack) Fetch(context.Context) ([]transcript.Segment, error) {
	return []transcript.Segment{{Text: "Hello"}, {Text: "world"}}, nil
}

type stubSource struct {
	err error
}

func (s stubSource) ResolveVideoID(string) (string, error) { return "abc123", nil }

func (s stubSource) ListTracks(_ context.Context, id string) (*transcript.TrackList, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &transcript.TrackList{VideoID: id, Tracks: []transcript.Track{oneTrack{}}}, nil
}

type echoCompleter struct {
	calls int
	err   error
}

func (c *echoCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	i := strings.Index(prompt, "Question:\n")
	return "re: " + strings.TrimSpace(prompt[i+len("Question:\n"):]), nil
}

func newTestTutor(src transcript.Source, c completion.Completer) *tutor.Service {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return tutor.NewService(transcript.NewFetcher(src, nil, log), completion.NewChain(nil, c), log)
}

func TestRunAskSingleQuestion(t *testing.T) {
	c := &echoCompleter{}
	var out strings.Builder

	err := runAsk(context.Background(), newTestTutor(stubSource{}, c),
		askOptions{url: "https://youtu.be/abc123?t=5", question: "what?"}, strings.NewReader(""), &out)

	require.NoError(t, err)
	assert.Equal(t, "Transcript length: 11 characters\nTranscript loaded. You can now ask questions.\nAnswer: re: what?\n", out.String())
	assert.Equal(t, 1, c.calls)
}

func TestRunAskReadsQuestionsFromInput(t *testing.T) {
	c := &echoCompleter{}
	var out strings.Builder

	in := strings.NewReader("first?\n\n  second?  \n")
	err := runAsk(context.Background(), newTestTutor(stubSource{}, c),
		askOptions{url: "https://youtu.be/abc123"}, in, &out)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Answer: re: first?\n")
	assert.Contains(t, out.String(), "Answer: re: second?\n")
	assert.Equal(t, 2, c.calls)
}

func TestRunAskTranscriptFailure(t *testing.T) {
	c := &echoCompleter{}
	var out strings.Builder

	err := runAsk(context.Background(), newTestTutor(stubSource{err: transcript.ErrNoTranscriptFound}, c),
		askOptions{url: "https://youtu.be/abc123", question: "what?"}, strings.NewReader(""), &out)

	require.Error(t, err)
	assert.Equal(t, "No transcript found for this video.\n", out.String())
	assert.Zero(t, c.calls)
}

func TestRunAskCompletionFailure(t *testing.T) {
	upstream := errors.New("endpoint down")

	err := runAsk(context.Background(), newTestTutor(stubSource{}, &echoCompleter{err: upstream}),
		askOptions{url: "https://youtu.be/abc123", question: "what?"}, strings.NewReader(""), io.Discard)

	assert.ErrorIs(t, err, upstream)
}

func TestRootCommands(t *testing.T) {
	root := NewRootCmd()

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "ask"}, names)

	ask, _, err := root.Find([]string{"ask"})
	require.NoError(t, err)
	assert.NotNil(t, ask.Flags().Lookup("url"))
	assert.NotNil(t, ask.Flags().Lookup("question"))
}
