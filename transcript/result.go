package transcript

import (
	"context"
	"errors"
	"fmt"
)

type Failure int

const (
	FailureNone Failure = iota
	FailureDisabled
	FailureNotFound
	FailureUnavailable
	FailureRetrieval
	FailureUnexpected
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureDisabled:
		return "transcripts_disabled"
	case FailureNotFound:
		return "no_transcript_found"
	case FailureUnavailable:
		return "video_unavailable"
	case FailureRetrieval:
		return "could_not_retrieve"
	default:
		return "unexpected"
	}
}

// Result is the outcome of one fetch. Text is empty unless Failure is FailureNone.
type Result struct {
	VideoID string
	Text    string
	Failure Failure
	Err     error
}

func (r Result) OK() bool {
	return r.Failure == FailureNone
}

// Message is the line shown to the user for a failed fetch.
func (r Result) Message() string {
	switch r.Failure {
	case FailureNone:
		return ""
	case FailureDisabled:
		return "Transcript disabled for this video."
	case FailureNotFound:
		return "No transcript found for this video."
	case FailureUnavailable:
		return "Video unavailable."
	case FailureRetrieval:
		return "Could not retrieve transcript. Please try again later."
	default:
		return fmt.Sprintf("Unexpected error: %v", r.Err)
	}
}

// Classify maps an error from a Source onto a Failure.
func Classify(err error) Failure {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrTranscriptsDisabled):
		return FailureDisabled
	case errors.Is(err, ErrNoTranscriptFound):
		return FailureNotFound
	case errors.Is(err, ErrVideoUnavailable):
		return FailureUnavailable
	case errors.Is(err, ErrCouldNotRetrieve),
		errors.Is(err, context.DeadlineExceeded):
		return FailureRetrieval
	default:
		return FailureUnexpected
	}
}

func failed(videoID string, err error) Result {
	return Result{VideoID: videoID, Failure: Classify(err), Err: err}
}
