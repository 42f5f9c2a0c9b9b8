package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-tutor/config"
)

const maxErrorBody = 4 << 10

var (
	ErrNotConfigured = errors.New("completion endpoint is not configured")
	ErrEmptyAnswer   = errors.New("completion returned no choices")
)

// Completer makes one completion call for a rendered prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// AzureClient calls an Azure OpenAI chat deployment. Each prompt is sent as a
// single user message. The call is not streamed and is never retried.
type AzureClient struct {
	cfg    config.CompletionConfig
	client *http.Client
	logger *logrus.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewAzureClient(cfg config.CompletionConfig, logger *logrus.Logger) *AzureClient {
	return NewAzureClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout}, logger)
}

func NewAzureClientWithHTTP(cfg config.CompletionConfig, httpClient *http.Client, logger *logrus.Logger) *AzureClient {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AzureClient{cfg: cfg, client: httpClient, logger: logger}
}

func (c *AzureClient) endpointURL() (string, error) {
	if c.cfg.Endpoint == "" || c.cfg.Deployment == "" {
		return "", ErrNotConfigured
	}
	base := strings.TrimRight(c.cfg.Endpoint, "/")
	u, err := url.Parse(fmt.Sprintf("%s/openai/deployments/%s/chat/completions", base, url.PathEscape(c.cfg.Deployment)))
	if err != nil {
		return "", errors.Wrap(err, "invalid completion endpoint")
	}
	q := u.Query()
	q.Set("api-version", c.cfg.APIVersion)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *AzureClient) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	endpoint, err := c.endpointURL()
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(chatRequest{
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", errors.Wrap(err, "encode completion request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build completion request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "completion request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "decode completion response")
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyAnswer
	}

	c.logger.WithFields(logrus.Fields{
		"deployment":        c.cfg.Deployment,
		"prompt_tokens":     out.Usage.PromptTokens,
		"completion_tokens": out.Usage.CompletionTokens,
		"finish_reason":     out.Choices[0].FinishReason,
		"duration":          time.Since(start),
	}).Info("Completion received")

	return out.Choices[0].Message.Content, nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var apiErr apiError
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
		return errors.Errorf("completion endpoint returned %d (%s): %s", resp.StatusCode, apiErr.Error.Code, apiErr.Error.Message)
	}
	return errors.Errorf("completion endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}
