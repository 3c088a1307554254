package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultServiceTimeout = 10 * time.Second

// ServiceClient calls the narration synthesis service over HTTP.
type ServiceClient struct {
	BaseURL string
	Client  *http.Client
}

// NewServiceClient constructs a client with defaults applied.
func NewServiceClient(baseURL string) *ServiceClient {
	return &ServiceClient{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Client:  &http.Client{Timeout: defaultServiceTimeout},
	}
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type warmUpRequest struct {
	Lines []Line `json:"lines"`
}

// Synthesize renders one line of text to audio. The response body is the
// binary audio payload; the Content-Type header names the format.
func (c *ServiceClient) Synthesize(ctx context.Context, text, voice string) (*Audio, error) {
	baseURL, err := c.baseURL()
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	body, err := json.Marshal(synthesizeRequest{Text: text, Voice: voice})
	if err != nil {
		return nil, fmt.Errorf("encode synthesize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build synthesize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("call synthesis service: %w", err)
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("synthesis service returned empty audio")
	}

	return &Audio{
		Text:   text,
		Voice:  voice,
		Data:   data,
		Format: formatFromContentType(resp.Header.Get("Content-Type")),
		Source: "service",
	}, nil
}

// WarmUp asks the service to pre-render a batch of lines, cached server-side
// by content hash. Advisory: failures are reported, never fatal.
func (c *ServiceClient) WarmUp(ctx context.Context, lines []Line) (*WarmUpResult, error) {
	baseURL, err := c.baseURL()
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	body, err := json.Marshal(warmUpRequest{Lines: lines})
	if err != nil {
		return nil, fmt.Errorf("encode warmup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/warmup", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build warmup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("call warmup endpoint: %w", err)
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	var result WarmUpResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode warmup response: %w", err)
	}
	return &result, nil
}

func (c *ServiceClient) baseURL() (string, error) {
	if c == nil {
		return "", errors.New("service client is nil")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		return "", errors.New("synthesis service URL is empty")
	}
	return baseURL, nil
}

func (c *ServiceClient) httpClient() *http.Client {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: defaultServiceTimeout}
	}
	if c.Client.Timeout <= 0 {
		c.Client.Timeout = defaultServiceTimeout
	}
	return c.Client
}

func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read service response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet := strings.TrimSpace(string(body))
		if snippet == "" {
			snippet = resp.Status
		}
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, fmt.Errorf("synthesis request failed (%s): %s", resp.Status, snippet)
	}

	return body, nil
}

func formatFromContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "wav"):
		return "wav"
	case strings.Contains(contentType, "ogg"):
		return "ogg"
	default:
		return "mp3"
	}
}
