// Package narration resolves demo narration text to playable audio.
//
// Resolution walks a prioritized provider chain: an in-memory cache keyed by
// (voice, normalized text), then a content-addressed on-disk store, then the
// remote synthesis service, and finally a local speech engine when the
// network path is unavailable. Only one narration plays at a time.
package narration

import (
	"context"
	"errors"
	"time"
)

// Resolver errors.
var (
	ErrEmptyText     = errors.New("narration text is empty")
	ErrNoSynthesizer = errors.New("no synthesizer available")
)

// Audio is a playable synthesized utterance.
type Audio struct {
	// Text is the normalized text the audio was rendered from.
	Text string

	// Voice is the voice identifier used for synthesis.
	Voice string

	// Data is the encoded audio payload (MP3 unless Format says otherwise).
	Data []byte

	// Format is the container/codec of Data, e.g. "mp3" or "wav".
	Format string

	// Source records which tier produced the audio: "memory", "disk",
	// "service", or "local".
	Source string
}

// Duration estimates playback length from the text when the payload itself
// carries no timing metadata. Roughly 15 characters per second of speech.
func (a *Audio) Duration() time.Duration {
	if a == nil || a.Text == "" {
		return 0
	}
	chars := len([]rune(a.Text))
	d := time.Duration(chars) * time.Second / 15
	if d < 500*time.Millisecond {
		d = 500 * time.Millisecond
	}
	return d
}

// Synthesizer renders text to audio for a given voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (*Audio, error)
}

// Line is a (text, voice) pair submitted to warm-up.
type Line struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// WarmUpResult reports the outcome of a batch pre-render.
type WarmUpResult struct {
	Cached    int `json:"cached"`
	Generated int `json:"generated"`
	Failed    int `json:"failed"`
}
