package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	mu      sync.Mutex
	reply   string
	err     error
	delay   time.Duration
	calls   []string
	history [][]Message
}

func (s *stubBackend) Send(ctx context.Context, message string, history []Message) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, message)
	s.history = append(s.history, history)
	reply, err, delay := s.reply, s.err, s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return reply, err
}

func (s *stubBackend) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func awaitIdle(t *testing.T, c *Client) {
	t.Helper()
	require.Eventually(t, func() bool { return !c.AwaitingReply() }, 2*time.Second, time.Millisecond)
}

func TestClient_SubmitRoundTrip(t *testing.T) {
	backend := &stubBackend{reply: "three vehicles are idle"}
	c := NewClient(backend)

	c.SetDraft("which vehicles are idle?")
	require.NoError(t, c.Submit(context.Background()))
	require.True(t, c.AwaitingReply(), "awaiting flips on submit")
	require.Empty(t, c.Draft(), "draft clears on submit")

	awaitIdle(t, c)

	transcript := c.Transcript()
	require.Len(t, transcript, 2)
	require.Equal(t, "user", transcript[0].Role)
	require.Equal(t, "which vehicles are idle?", transcript[0].Text)
	require.Equal(t, "assistant", transcript[1].Role)
	require.Equal(t, "three vehicles are idle", transcript[1].Text)
	require.NotEmpty(t, transcript[0].ID)
	require.NotEqual(t, transcript[0].ID, transcript[1].ID)
}

func TestClient_EmptyDraft(t *testing.T) {
	c := NewClient(&stubBackend{})
	c.SetDraft("   ")
	require.ErrorIs(t, c.Submit(context.Background()), ErrEmptyDraft)
}

func TestClient_BusyRejectsAndResetRecovers(t *testing.T) {
	backend := &stubBackend{reply: "ok", delay: 200 * time.Millisecond}
	c := NewClient(backend)

	c.SetDraft("first")
	require.NoError(t, c.Submit(context.Background()))

	c.SetDraft("second")
	require.ErrorIs(t, c.Submit(context.Background()), ErrBusy)

	c.ResetBusy()
	c.SetDraft("second")
	require.NoError(t, c.Submit(context.Background()), "reset clears the stuck flag")

	require.Eventually(t, func() bool { return len(backend.sent()) == 2 }, 2*time.Second, time.Millisecond)
}

func TestClient_BackendFailureLandsAsSystemMessage(t *testing.T) {
	c := NewClient(&stubBackend{err: errors.New("upstream 502")})

	c.SetDraft("hello?")
	require.NoError(t, c.Submit(context.Background()))
	awaitIdle(t, c)

	transcript := c.Transcript()
	require.Len(t, transcript, 2)
	require.Equal(t, "system", transcript[1].Role)
	require.False(t, c.AwaitingReply(), "a failed reply still completes the wait")
}

func TestClient_StaleReplyDoesNotClearAwaiting(t *testing.T) {
	backend := &stubBackend{reply: "first", delay: 100 * time.Millisecond}
	c := NewClient(backend)

	c.SetDraft("warm up the map")
	require.NoError(t, c.Submit(context.Background()))

	backend.mu.Lock()
	backend.reply = "second"
	backend.delay = 600 * time.Millisecond
	backend.mu.Unlock()

	c.ResetBusy()
	c.SetDraft("show me the idle vehicles")
	require.NoError(t, c.Submit(context.Background()))

	// Let the first reply land while the second is still in flight.
	time.Sleep(300 * time.Millisecond)
	require.True(t, c.AwaitingReply(), "superseded reply must not end the current wait")

	awaitIdle(t, c)
	transcript := c.Transcript()
	require.Equal(t, "second", transcript[len(transcript)-1].Text)
}

func TestClient_InterceptConsumesControlPhrases(t *testing.T) {
	backend := &stubBackend{reply: "should not happen"}
	c := NewClient(backend)

	var seen []string
	c.SetIntercept(func(text string) bool {
		seen = append(seen, text)
		return text == "start the demo"
	})

	c.SetDraft("start the demo")
	require.NoError(t, c.Submit(context.Background()))
	require.Empty(t, c.Draft())
	require.Empty(t, c.Transcript(), "consumed phrases never reach the transcript")
	require.Empty(t, backend.sent())

	c.SetDraft("a real question")
	require.NoError(t, c.Submit(context.Background()))
	awaitIdle(t, c)
	require.Equal(t, []string{"start the demo", "a real question"}, seen)
	require.Equal(t, []string{"a real question"}, backend.sent())
}

func TestClient_HistoryWindow(t *testing.T) {
	backend := &stubBackend{reply: "ok"}
	c := NewClient(backend)

	for i := 0; i < historyLimit; i++ {
		c.SetDraft("ping")
		require.NoError(t, c.Submit(context.Background()))
		awaitIdle(t, c)
	}

	c.SetDraft("final")
	require.NoError(t, c.Submit(context.Background()))
	awaitIdle(t, c)

	backend.mu.Lock()
	last := backend.history[len(backend.history)-1]
	backend.mu.Unlock()
	require.Len(t, last, historyLimit, "history is capped to the trailing window")
}

func TestClient_OnMessageCallback(t *testing.T) {
	c := NewClient(&stubBackend{reply: "pong"})

	var mu sync.Mutex
	var roles []string
	c.OnMessage(func(msg Message) {
		mu.Lock()
		roles = append(roles, msg.Role)
		mu.Unlock()
	})

	c.SetDraft("ping")
	require.NoError(t, c.Submit(context.Background()))
	awaitIdle(t, c)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"user", "assistant"}, roles)
}
