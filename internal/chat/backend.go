package chat

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

const defaultBackendTimeout = 60 * time.Second

// HTTPBackend talks to the assistant service's chat endpoint.
type HTTPBackend struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPBackend constructs a backend with defaults applied.
func NewHTTPBackend(baseURL string) *HTTPBackend {
	return &HTTPBackend{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Client:  &http.Client{Timeout: defaultBackendTimeout},
	}
}

type chatRequest struct {
	Message string        `json:"message"`
	History []chatMessage `json:"history,omitempty"`
}

type chatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type chatResponse struct {
	Reply string `json:"reply"`
	Error string `json:"error,omitempty"`
}

// Send posts the message with its history window and returns the reply.
func (b *HTTPBackend) Send(ctx context.Context, message string, history []Message) (string, error) {
	baseURL, err := b.baseURL()
	if err != nil {
		return "", err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	payload := chatRequest{Message: message}
	for _, msg := range history {
		payload.History = append(payload.History, chatMessage{Role: msg.Role, Text: msg.Text})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("call chat backend: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := readResponseBody(resp)
	if err != nil {
		return "", err
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("chat backend: %s", out.Error)
	}
	return out.Reply, nil
}

func (b *HTTPBackend) baseURL() (string, error) {
	if b == nil {
		return "", errors.New("chat backend is nil")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(b.BaseURL), "/")
	if baseURL == "" {
		return "", errors.New("chat backend URL is empty")
	}
	return baseURL, nil
}

func (b *HTTPBackend) httpClient() *http.Client {
	if b.Client == nil {
		b.Client = &http.Client{Timeout: defaultBackendTimeout}
	}
	if b.Client.Timeout <= 0 {
		b.Client.Timeout = defaultBackendTimeout
	}
	return b.Client
}

func readResponseBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet := strings.TrimSpace(string(body))
		if snippet == "" {
			snippet = resp.Status
		}
		return nil, fmt.Errorf("chat request failed (%s): %s", resp.Status, snippet)
	}

	return body, nil
}
