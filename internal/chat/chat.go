// Package chat holds the dashboard's AI assistant state: the draft input,
// the transcript, and asynchronous submission against a chat backend.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opentelematics/fleetdeck/internal/logging"
)

// Chat errors.
var (
	ErrEmptyDraft = errors.New("chat draft is empty")
	ErrBusy       = errors.New("chat submission already in progress")
)

// historyLimit caps how many prior messages accompany a submission.
const historyLimit = 20

// Message is one transcript entry.
type Message struct {
	ID   string    `json:"id"`
	Role string    `json:"role"` // "user", "assistant", or "system"
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// Backend answers a message given the prior conversation.
type Backend interface {
	Send(ctx context.Context, message string, history []Message) (string, error)
}

// Client owns the chat state. All methods are safe for concurrent use; a
// submission runs in the background and appends the reply when it lands.
type Client struct {
	backend Backend
	logger  zerolog.Logger

	mu         sync.Mutex
	draft      string
	transcript []Message
	busy       bool
	awaiting   bool
	submitGen  uint64
	intercept  func(text string) bool
	onMessage  func(Message)
}

// NewClient creates a chat client over a backend.
func NewClient(backend Backend) *Client {
	return &Client{
		backend: backend,
		logger:  logging.Component("chat"),
	}
}

// SetIntercept installs a hook that sees every submission first. A hook
// returning true consumes the text: nothing reaches the backend and no
// transcript entry is made. Used for spoken control phrases.
func (c *Client) SetIntercept(fn func(text string) bool) {
	c.mu.Lock()
	c.intercept = fn
	c.mu.Unlock()
}

// OnMessage installs a callback invoked for every appended transcript
// message, user and assistant alike.
func (c *Client) OnMessage(fn func(Message)) {
	c.mu.Lock()
	c.onMessage = fn
	c.mu.Unlock()
}

// SetDraft replaces the pending input content.
func (c *Client) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

// Draft returns the pending input content.
func (c *Client) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Busy reports whether a submission is in flight.
func (c *Client) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// ResetBusy force-clears the in-flight flag. A stuck prior submission must
// not silently swallow the next one.
func (c *Client) ResetBusy() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// AwaitingReply reports whether a submitted message has not yet received
// its response. Completion predicates poll this.
func (c *Client) AwaitingReply() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.awaiting
}

// Transcript returns a copy of the conversation so far.
func (c *Client) Transcript() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.transcript...)
}

// Clear drops the transcript and the draft.
func (c *Client) Clear() {
	c.mu.Lock()
	c.transcript = nil
	c.draft = ""
	c.mu.Unlock()
}

// Submit posts the current draft. The user message is appended immediately;
// the backend reply is appended asynchronously, and a backend failure lands
// in the transcript as a system message rather than surfacing an error.
func (c *Client) Submit(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	text := strings.TrimSpace(c.draft)
	if text == "" {
		c.mu.Unlock()
		return ErrEmptyDraft
	}
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	intercept := c.intercept
	c.mu.Unlock()

	if intercept != nil && intercept(text) {
		c.mu.Lock()
		c.draft = ""
		c.mu.Unlock()
		c.logger.Debug().Str("text", text).Msg("submission consumed by intercept")
		return nil
	}

	c.mu.Lock()
	c.draft = ""
	c.busy = true
	c.awaiting = true
	c.submitGen++
	gen := c.submitGen
	history := c.historyLocked()
	c.mu.Unlock()

	c.append(Message{Role: "user", Text: text})

	go func() {
		reply, err := c.backend.Send(ctx, text, history)
		if err != nil {
			c.logger.Warn().Err(err).Msg("chat backend failed")
			c.append(Message{Role: "system", Text: "The assistant is unavailable right now."})
		} else {
			c.append(Message{Role: "assistant", Text: reply})
		}

		// A reply from a superseded submission must not clear the flags
		// the current submission owns.
		c.mu.Lock()
		if gen == c.submitGen {
			c.busy = false
			c.awaiting = false
		}
		c.mu.Unlock()
	}()

	return nil
}

func (c *Client) append(msg Message) {
	msg.ID = uuid.NewString()
	msg.Time = time.Now()

	c.mu.Lock()
	c.transcript = append(c.transcript, msg)
	onMessage := c.onMessage
	c.mu.Unlock()

	if onMessage != nil {
		onMessage(msg)
	}
}

// historyLocked returns the trailing window of the transcript. Caller holds
// the lock.
func (c *Client) historyLocked() []Message {
	start := 0
	if len(c.transcript) > historyLimit {
		start = len(c.transcript) - historyLimit
	}
	return append([]Message(nil), c.transcript[start:]...)
}
