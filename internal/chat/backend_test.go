package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPBackend_Send(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(chatResponse{Reply: "two trips today"})
	}))
	defer server.Close()

	backend := NewHTTPBackend(server.URL + "/")
	history := []Message{
		{Role: "user", Text: "hi"},
		{Role: "assistant", Text: "hello", Time: time.Now()},
	}

	reply, err := backend.Send(context.Background(), "how many trips?", history)
	require.NoError(t, err)
	require.Equal(t, "two trips today", reply)
	require.Equal(t, "how many trips?", got.Message)
	require.Len(t, got.History, 2)
	require.Equal(t, "assistant", got.History[1].Role)
}

func TestHTTPBackend_ErrorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{Error: "model overloaded"})
	}))
	defer server.Close()

	_, err := NewHTTPBackend(server.URL).Send(context.Background(), "q", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "model overloaded")
}

func TestHTTPBackend_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewHTTPBackend(server.URL).Send(context.Background(), "q", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}

func TestHTTPBackend_EmptyURL(t *testing.T) {
	_, err := NewHTTPBackend("  ").Send(context.Background(), "q", nil)
	require.Error(t, err)
}
