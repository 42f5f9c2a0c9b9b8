package youtube

import (
	"net/url"
	"strings"

	ytdl "github.com/kkdai/youtube/v2"
)

const (
	shortHostMarker    = "youtu.be"
	standardHostMarker = "youtube.com"

	// WatchURLPrefix is the canonical watch-link form, completed by the video id.
	WatchURLPrefix = "https://www.youtube.com/watch?v="
)

// NormalizeURL rewrites a short link or a watch link into its canonical form.
// Short links lose their query string. Watch links are reduced to the "v"
// parameter. Anything else, including a watch link without "v", is returned
// unchanged.
func NormalizeURL(raw string) string {
	if strings.Contains(raw, shortHostMarker) {
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			return raw[:i]
		}
		return raw
	}

	if strings.Contains(raw, standardHostMarker) {
		if id := firstQueryValue(raw, "v"); id != "" {
			return WatchURLPrefix + id
		}
	}

	return raw
}

// VideoID resolves the video identifier from any accepted URL shape, or from a
// bare identifier.
func VideoID(raw string) (string, error) {
	return ytdl.ExtractVideoID(strings.TrimSpace(raw))
}

func firstQueryValue(raw, key string) string {
	var rawQuery string
	if u, err := url.Parse(raw); err == nil {
		rawQuery = u.RawQuery
	} else {
		rawQuery = querySection(raw)
	}

	// A malformed pair does not hide the well-formed ones.
	values, _ := url.ParseQuery(rawQuery)
	for _, v := range values[key] {
		if v != "" {
			return v
		}
	}
	return ""
}

func querySection(raw string) string {
	i := strings.IndexByte(raw, '?')
	if i < 0 {
		return ""
	}
	q := raw[i+1:]
	if j := strings.IndexByte(q, '#'); j >= 0 {
		q = q[:j]
	}
	return q
}
