// Package transcript selects an English caption track for a video and turns it
// into one block of plain text.
package transcript

import (
	"context"
	"errors"
	"strings"
)

// Failure conditions a Source reports by wrapping one of these.
var (
	ErrTranscriptsDisabled = errors.New("transcripts are disabled for this video")
	ErrNoTranscriptFound   = errors.New("no transcript found in the requested languages")
	ErrVideoUnavailable    = errors.New("video is unavailable")
	ErrCouldNotRetrieve    = errors.New("could not retrieve transcript")
)

// Segment is one caption line.
type Segment struct {
	Text     string
	Start    float64
	Duration float64
}

// Track is one caption stream of a video.
type Track interface {
	LanguageCode() string
	// IsGenerated reports whether the track was produced by speech recognition
	// rather than written by a person.
	IsGenerated() bool
	Fetch(ctx context.Context) ([]Segment, error)
}

// Source resolves videos and lists their caption tracks.
type Source interface {
	ResolveVideoID(videoURL string) (string, error)
	ListTracks(ctx context.Context, videoID string) (*TrackList, error)
}

// TrackList holds every caption track available for one video.
type TrackList struct {
	VideoID string
	Tracks  []Track
}

// FindManual returns the first human-authored track matching languages, tried
// in order of preference.
func (l *TrackList) FindManual(languages []string) (Track, error) {
	return l.find(languages, false)
}

// FindGenerated returns the first auto-generated track matching languages.
func (l *TrackList) FindGenerated(languages []string) (Track, error) {
	return l.find(languages, true)
}

func (l *TrackList) find(languages []string, generated bool) (Track, error) {
	for _, lang := range languages {
		for _, t := range l.Tracks {
			if t.IsGenerated() == generated && t.LanguageCode() == lang {
				return t, nil
			}
		}
	}
	return nil, ErrNoTranscriptFound
}

// JoinSegments concatenates segment text with single spaces, keeping order.
func JoinSegments(segments []Segment) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}
