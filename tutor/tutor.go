package tutor

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-tutor/session"
	"github.com/nijaru/yt-tutor/transcript"
	"github.com/nijaru/yt-tutor/youtube"
)

const LoadedMessage = "Transcript loaded. You can now ask questions."

var (
	ErrNoTranscript  = errors.New("please load a transcript first")
	ErrEmptyQuestion = errors.New("question is required")
)

type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoURL string) transcript.Result
}

type QuestionAnswerer interface {
	Run(ctx context.Context, transcript, question string) (string, error)
}

// LoadResult describes one transcript load for display.
type LoadResult struct {
	VideoURL   string
	Result     transcript.Result
	Characters int
}

func (r LoadResult) OK() bool {
	return r.Result.OK()
}

// Message is the status line shown after a load.
func (r LoadResult) Message() string {
	if r.Result.OK() {
		return LoadedMessage
	}
	return r.Result.Message()
}

// Service runs the user actions against a caller-owned session. It does not
// persist the session; callers save it after each action.
type Service struct {
	fetcher TranscriptFetcher
	chain   QuestionAnswerer
	logger  *logrus.Logger
}

func NewService(fetcher TranscriptFetcher, chain QuestionAnswerer, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{fetcher: fetcher, chain: chain, logger: logger}
}

// LoadTranscript normalizes rawURL, fetches its transcript and stores the
// outcome on sess. A failed fetch clears any earlier transcript.
func (s *Service) LoadTranscript(ctx context.Context, sess *session.Session, rawURL string) LoadResult {
	videoURL := youtube.NormalizeURL(strings.TrimSpace(rawURL))
	res := s.fetcher.Fetch(ctx, videoURL)

	out := LoadResult{VideoURL: videoURL, Result: res}
	if res.OK() {
		sess.SetTranscript(videoURL, res.Text)
		out.Characters = utf8.RuneCountInString(res.Text)
	} else {
		sess.ClearTranscript(videoURL)
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"video_url":  videoURL,
		"failure":    res.Failure.String(),
		"characters": out.Characters,
	}).Info("Transcript load finished")

	return out
}

// Ask answers question using the session's transcript as context.
func (s *Service) Ask(ctx context.Context, sess *session.Session, question string) (string, error) {
	if !sess.HasTranscript() {
		return "", ErrNoTranscript
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	answer, err := s.chain.Run(ctx, sess.Transcript, question)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"session_id": sess.ID,
			"video_url":  sess.VideoURL,
		}).WithError(err).Error("Question failed")
		return "", err
	}
	return answer, nil
}
