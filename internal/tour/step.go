// Package tour implements the automated narrated demo orchestrator: an
// ordered registry of steps and a runner that drives them start-to-finish
// with synthesized narration, bounded asynchronous waits, and leak-free
// cancellation.
package tour

import (
	"errors"
	"fmt"
	"time"
)

// Step errors.
var (
	ErrConflictingAdvancement = errors.New("step declares both wait_for and voice_query")
)

// Step is the atomic unit of the demo sequence.
type Step struct {
	// Label is shown on the overlay while the step is active.
	Label string

	// Narration is spoken and appended to the transcript when the step
	// starts.
	Narration string

	// Action is a side-effecting callback invoked once when the step
	// starts. A panicking action is isolated and never stalls the tour.
	Action func()

	// VoiceQuery, when set, is played as simulated user speech while being
	// typed into the chat input, then submitted.
	VoiceQuery string

	// WaitFor, when set, is polled after narration instead of advancing on
	// a fixed delay.
	WaitFor func() bool

	// WaitTimeout bounds WaitFor polling; zero means the runner default.
	// Expiry is never fatal: the tour advances anyway.
	WaitTimeout time.Duration

	// ResultNarration is spoken after WaitFor succeeds or times out.
	ResultNarration string

	// PauseAfter is the pacing delay before the next step is scheduled.
	PauseAfter time.Duration
}

// Validate enforces the step invariant: at most one of WaitFor and
// VoiceQuery drives advancement.
func (s Step) Validate() error {
	if s.WaitFor != nil && s.VoiceQuery != "" {
		return ErrConflictingAdvancement
	}
	return nil
}

// Registry is an ordered, validated list of demo steps.
type Registry struct {
	Name        string
	Description string

	// Voice is the narrator voice for this tour.
	Voice string

	// UserVoice is the voice for simulated spoken queries.
	UserVoice string

	Steps []Step
}

// Validate checks every step.
func (r *Registry) Validate() error {
	if r == nil || len(r.Steps) == 0 {
		return errors.New("tour has no steps")
	}
	for i, step := range r.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

// Lines collects every speakable line in the registry, for warm-up.
func (r *Registry) Lines() []Line {
	lines := make([]Line, 0, len(r.Steps)*2)
	for _, step := range r.Steps {
		if step.Narration != "" {
			lines = append(lines, Line{Text: step.Narration, Voice: r.Voice})
		}
		if step.ResultNarration != "" {
			lines = append(lines, Line{Text: step.ResultNarration, Voice: r.Voice})
		}
		if step.VoiceQuery != "" {
			lines = append(lines, Line{Text: step.VoiceQuery, Voice: r.UserVoice})
		}
	}
	return lines
}

// Line is a speakable (text, voice) pair.
type Line struct {
	Text  string
	Voice string
}
