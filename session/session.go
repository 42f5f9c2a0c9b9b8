package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("session not found")

// Session is the per-visitor state. Transcript is empty until a fetch
// succeeds and is cleared again when a later fetch fails.
type Session struct {
	ID         string
	VideoURL   string
	Transcript string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func New() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) HasTranscript() bool {
	return s.Transcript != ""
}

// SetTranscript records a successful fetch.
func (s *Session) SetTranscript(videoURL, text string) {
	s.VideoURL = videoURL
	s.Transcript = text
}

// ClearTranscript records a failed fetch. The URL is kept for display.
func (s *Session) ClearTranscript(videoURL string) {
	s.VideoURL = videoURL
	s.Transcript = ""
}

type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	PurgeExpired(ctx context.Context) (int64, error)
}
