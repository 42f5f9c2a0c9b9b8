package youtube

import (
	"context"
	"errors"
	"net/http"
	"time"

	ytdl "github.com/kkdai/youtube/v2"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-tutor/transcript"
)

const generatedKind = "asr"

// Client is the transcript.Source backed by YouTube. Video metadata and the
// caption track list come from the player response; captions are read from
// each track's timedtext URL.
type Client struct {
	yt     *ytdl.Client
	http   *http.Client
	logger *logrus.Logger
}

func NewClient(timeout time.Duration, logger *logrus.Logger) *Client {
	httpClient := &http.Client{Timeout: timeout}
	return NewClientWithHTTP(httpClient, logger)
}

func NewClientWithHTTP(httpClient *http.Client, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		yt:     &ytdl.Client{HTTPClient: httpClient},
		http:   httpClient,
		logger: logger,
	}
}

func (c *Client) ResolveVideoID(videoURL string) (string, error) {
	return VideoID(videoURL)
}

// ListTracks loads the video's player data and returns its caption tracks.
func (c *Client) ListTracks(ctx context.Context, videoID string) (*transcript.TrackList, error) {
	video, err := c.yt.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, classifyVideoError(videoID, err)
	}

	if len(video.CaptionTracks) == 0 {
		return nil, pkgerrors.WithMessagef(transcript.ErrTranscriptsDisabled, "video %s", videoID)
	}

	list := &transcript.TrackList{VideoID: video.ID}
	for _, ct := range video.CaptionTracks {
		list.Tracks = append(list.Tracks, &captionTrack{
			client:    c,
			baseURL:   ct.BaseURL,
			lang:      ct.LanguageCode,
			generated: ct.Kind == generatedKind,
		})
	}

	c.logger.WithFields(logrus.Fields{
		"video_id": videoID,
		"title":    video.Title,
		"tracks":   len(list.Tracks),
	}).Debug("Listed caption tracks")

	return list, nil
}

func classifyVideoError(videoID string, err error) error {
	var playability *ytdl.ErrPlayabiltyStatus

	switch {
	case errors.Is(err, ytdl.ErrInvalidCharactersInVideoID),
		errors.Is(err, ytdl.ErrVideoIDMinLength):
		return err
	case errors.Is(err, ytdl.ErrVideoPrivate),
		errors.Is(err, ytdl.ErrLoginRequired),
		errors.Is(err, ytdl.ErrNotPlayableInEmbed),
		errors.As(err, &playability):
		return pkgerrors.WithMessagef(transcript.ErrVideoUnavailable, "video %s: %v", videoID, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return pkgerrors.WithMessagef(transcript.ErrCouldNotRetrieve, "video %s: %v", videoID, err)
	}
}

type captionTrack struct {
	client    *Client
	baseURL   string
	lang      string
	generated bool
}

func (t *captionTrack) LanguageCode() string { return t.lang }

func (t *captionTrack) IsGenerated() bool { return t.generated }

func (t *captionTrack) Fetch(ctx context.Context) ([]transcript.Segment, error) {
	return t.client.fetchTimedText(ctx, t.baseURL)
}
