package youtube

import (
	"context"
	"encoding/xml"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/nijaru/yt-tutor/transcript"
)

const (
	maxTimedTextBytes = 8 << 20
	userAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

var markupRE = regexp.MustCompile(`<[^>]*>`)

type timedText struct {
	XMLName xml.Name        `xml:"transcript"`
	Lines   []timedTextLine `xml:"text"`
}

type timedTextLine struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

func (c *Client) fetchTimedText(ctx context.Context, baseURL string) ([]transcript.Segment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, plainTimedTextURL(baseURL), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "build timedtext request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.WithMessagef(transcript.ErrCouldNotRetrieve, "timedtext request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pkgerrors.WithMessagef(transcript.ErrCouldNotRetrieve, "timedtext status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTimedTextBytes))
	if err != nil {
		return nil, pkgerrors.WithMessagef(transcript.ErrCouldNotRetrieve, "read timedtext: %v", err)
	}

	segments, err := parseTimedText(body)
	if err != nil {
		return nil, pkgerrors.WithMessagef(transcript.ErrCouldNotRetrieve, "parse timedtext: %v", err)
	}
	return segments, nil
}

// plainTimedTextURL drops the fmt parameter so the endpoint answers with the
// simple <transcript><text> XML format.
func plainTimedTextURL(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}
	q := u.Query()
	if q.Has("fmt") {
		q.Del("fmt")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// parseTimedText decodes timedtext XML into segments. Entities are unescaped
// and inline markup is removed; lines left blank are skipped.
func parseTimedText(data []byte) ([]transcript.Segment, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var tt timedText
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, err
	}

	segments := make([]transcript.Segment, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		text := markupRE.ReplaceAllString(html.UnescapeString(line.Text), "")
		if strings.TrimSpace(text) == "" {
			continue
		}
		segments = append(segments, transcript.Segment{
			Text:     text,
			Start:    parseSeconds(line.Start),
			Duration: parseSeconds(line.Dur),
		})
	}
	return segments, nil
}

func parseSeconds(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
