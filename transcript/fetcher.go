package transcript

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var DefaultLanguages = []string{"en"}

// Fetcher turns a video URL into transcript text. It never retries: each
// failure is final for the call.
type Fetcher struct {
	source    Source
	languages []string
	logger    *logrus.Logger
}

func NewFetcher(source Source, languages []string, logger *logrus.Logger) *Fetcher {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Fetcher{
		source:    source,
		languages: languages,
		logger:    logger,
	}
}

// Fetch prefers a human-authored track in the configured languages and falls
// back to an auto-generated one. Every failure, including a panic inside the
// source, is reported through the Result.
func (f *Fetcher) Fetch(ctx context.Context, videoURL string) (res Result) {
	start := time.Now()
	log := f.logger.WithField("video_url", videoURL)

	defer func() {
		if rec := recover(); rec != nil {
			res = Result{Failure: FailureUnexpected, Err: fmt.Errorf("panic: %v", rec)}
		}

		fields := logrus.Fields{
			"video_id": res.VideoID,
			"failure":  res.Failure.String(),
			"duration": time.Since(start),
		}
		if res.OK() {
			fields["characters"] = len(res.Text)
			log.WithFields(fields).Info("Transcript fetched")
			return
		}
		log.WithFields(fields).WithError(res.Err).Warn("Transcript fetch failed")
	}()

	videoID, err := f.source.ResolveVideoID(videoURL)
	if err != nil {
		return failed("", err)
	}

	tracks, err := f.source.ListTracks(ctx, videoID)
	if err != nil {
		return failed(videoID, err)
	}

	track, err := tracks.FindManual(f.languages)
	if err != nil {
		log.WithField("languages", f.languages).Debug("No manual track, trying generated")
		track, err = tracks.FindGenerated(f.languages)
		if err != nil {
			return failed(videoID, err)
		}
	}

	segments, err := track.Fetch(ctx)
	if err != nil {
		return failed(videoID, err)
	}
	if len(segments) == 0 {
		return failed(videoID, fmt.Errorf("%w: track %s has no segments", ErrNoTranscriptFound, track.LanguageCode()))
	}

	text := JoinSegments(segments)
	if strings.TrimSpace(text) == "" {
		return failed(videoID, fmt.Errorf("%w: track %s has no text", ErrNoTranscriptFound, track.LanguageCode()))
	}

	return Result{VideoID: videoID, Text: text}
}
