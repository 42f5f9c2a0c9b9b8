package validation

import (
	"net/url"
	"strings"

	"github.com/nijaru/yt-tutor/errors"
)

const MaxQuestionLength = 4000

// ValidateURL checks that a submitted video link points at YouTube. A link
// without a scheme is read as https. The video id itself is not checked here;
// a bad id fails at fetch time.
func ValidateURL(urlStr string) error {
	const op = "validation.ValidateURL"

	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return errors.InvalidInput(op, nil, "URL is required")
	}

	if !strings.Contains(urlStr, "://") {
		urlStr = "https://" + urlStr
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return errors.InvalidInput(op, err, "Invalid URL format")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.InvalidInput(op, nil, "URL must use HTTP or HTTPS")
	}

	host := strings.ToLower(parsedURL.Hostname())
	if !strings.Contains(host, "youtube.com") && !strings.Contains(host, "youtu.be") {
		return errors.InvalidInput(op, nil, "Only YouTube URLs are supported")
	}

	return nil
}

func ValidateQuestion(question string) error {
	const op = "validation.ValidateQuestion"

	question = strings.TrimSpace(question)
	if question == "" {
		return errors.InvalidInput(op, nil, "Question is required")
	}
	if len([]rune(question)) > MaxQuestionLength {
		return errors.InvalidInput(op, nil, "Question is too long")
	}
	return nil
}
