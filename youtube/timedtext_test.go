package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ytdl "github.com/kkdai/youtube/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nijaru/yt-tutor/transcript"
)

const sampleTimedText = `<?xml version="1.0" encoding="utf-8" ?>
<transcript>
  <text start="0.5" dur="1.2">Hello</text>
  <text start="1.7" dur="2">world &amp;amp; friends</text>
  <text start="3.7" dur="1"></text>
  <text start="4.7" dur="1.5">&lt;font color=&quot;#E5E5E5&quot;&gt;it&amp;#39;s&lt;/font&gt; fine</text>
</transcript>`

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestParseTimedText(t *testing.T) {
	segments, err := parseTimedText([]byte(sampleTimedText))
	require.NoError(t, err)
	require.Len(t, segments, 3)

	assert.Equal(t, "Hello", segments[0].Text)
	assert.Equal(t, 0.5, segments[0].Start)
	assert.Equal(t, 1.2, segments[0].Duration)
	assert.Equal(t, "world & friends", segments[1].Text)
	assert.Equal(t, "it's fine", segments[2].Text)
	assert.Equal(t, "Hello world & friends it's fine", transcript.JoinSegments(segments))
}

func TestParseTimedText_MarkupOnly(t *testing.T) {
	data := `<transcript><text start="0" dur="1">&lt;font color=&quot;#FFF&quot;&gt;&lt;/font&gt;</text><text start="1" dur="1">  </text></transcript>`

	segments, err := parseTimedText([]byte(data))
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestParseTimedText_Empty(t *testing.T) {
	segments, err := parseTimedText(nil)
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestParseTimedText_Malformed(t *testing.T) {
	_, err := parseTimedText([]byte("<transcript><text>"))
	assert.Error(t, err)
}

func TestPlainTimedTextURL(t *testing.T) {
	got := plainTimedTextURL("https://www.youtube.com/api/timedtext?v=abc&lang=en&fmt=srv3")
	assert.Equal(t, "https://www.youtube.com/api/timedtext?lang=en&v=abc", got)

	unchanged := "https://www.youtube.com/api/timedtext?v=abc&lang=en"
	assert.Equal(t, unchanged, plainTimedTextURL(unchanged))
}

func TestCaptionTrackFetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Query().Has("fmt") {
			http.Error(w, "unexpected fmt", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, sampleTimedText)
	}))
	defer srv.Close()

	c := NewClientWithHTTP(srv.Client(), quietLogger())
	track := &captionTrack{client: c, baseURL: srv.URL + "/api/timedtext?v=abc&fmt=srv3", lang: "en", generated: true}

	segments, err := track.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, segments, 3)
	assert.Equal(t, userAgent, gotUA)
	assert.True(t, track.IsGenerated())
	assert.Equal(t, "en", track.LanguageCode())
}

func TestCaptionTrackFetch_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "<transcript><text>")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClientWithHTTP(srv.Client(), quietLogger())
			_, err := c.fetchTimedText(context.Background(), srv.URL)

			require.Error(t, err)
			assert.True(t, errors.Is(err, transcript.ErrCouldNotRetrieve), "got %v", err)
			assert.Equal(t, transcript.FailureRetrieval, transcript.Classify(err))
		})
	}
}

func TestCaptionTrackFetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClientWithHTTP(&http.Client{Timeout: time.Second}, quietLogger())
	_, err := c.fetchTimedText(context.Background(), url)

	assert.Equal(t, transcript.FailureRetrieval, transcript.Classify(err))
}

func TestClassifyVideoError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want transcript.Failure
	}{
		{"private video", ytdl.ErrVideoPrivate, transcript.FailureUnavailable},
		{"login required", ytdl.ErrLoginRequired, transcript.FailureUnavailable},
		{"embedding disabled", ytdl.ErrNotPlayableInEmbed, transcript.FailureUnavailable},
		{"playability status", &ytdl.ErrPlayabiltyStatus{Status: "ERROR", Reason: "Video unavailable"}, transcript.FailureUnavailable},
		{"invalid id", ytdl.ErrInvalidCharactersInVideoID, transcript.FailureUnexpected},
		{"transport error", errors.New("dial tcp: connection refused"), transcript.FailureRetrieval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := transcript.Classify(classifyVideoError("dQw4w9WgXcQ", tt.err))
			assert.Equal(t, tt.want, got)
		})
	}
}
