package tour

import (
	"context"
	"sync"
	"time"

	"github.com/opentelematics/fleetdeck/internal/logging"
	"github.com/opentelematics/fleetdeck/internal/stage"
	"github.com/rs/zerolog"
)

// Speech is one in-flight narration utterance.
type Speech interface {
	// Done is closed when the utterance finishes or is stopped.
	Done() <-chan struct{}

	// Stop halts the utterance immediately.
	Stop()

	// Playing reports whether the utterance is still audible.
	Playing() bool
}

// Speaker plays narration. Implementations stop any current utterance
// before starting a new one, so voices never overlap.
type Speaker interface {
	Say(ctx context.Context, text, voice string) (Speech, error)

	// Stop silences the speaker entirely, including any platform speech
	// synthesis in progress.
	Stop()
}

// Chat is the submission interface of the dashboard's AI chat.
type Chat interface {
	// SetDraft replaces the pending input content.
	SetDraft(text string)

	// ResetBusy clears any "submission in progress" flag so a prior,
	// still-settling submission cannot silently drop the next one.
	ResetBusy()

	// Submit posts the current draft to the AI backend. The response is
	// appended to the transcript asynchronously.
	Submit(ctx context.Context) error
}

// Config contains runner pacing and timeout settings.
type Config struct {
	// PollInterval is how often a completion predicate is evaluated.
	// Default: 1 second.
	PollInterval time.Duration

	// WaitTimeout bounds completion polling for steps that don't set
	// their own. Default: 45 seconds.
	WaitTimeout time.Duration

	// TypeCadence is the typewriter reveal pace per character.
	// Default: 40ms.
	TypeCadence time.Duration

	// SubmitFloor is the minimum pause after a voice-query submission,
	// so the submission path is never re-entered immediately.
	// Default: 300ms.
	SubmitFloor time.Duration

	// EndGrace defers teardown when narration is still playing as the
	// last step completes. Default: 1.5 seconds.
	EndGrace time.Duration

	// SpeechFallbackDelay stands in for narration that could not be
	// synthesized at all. Default: 600ms.
	SpeechFallbackDelay time.Duration

	// ScrollReveal is the slow auto-scroll duration used when a result
	// narration reveals an asynchronous answer. Default: 4 seconds.
	ScrollReveal time.Duration
}

// DefaultConfig returns sensible default pacing.
func DefaultConfig() Config {
	return Config{
		PollInterval:        1 * time.Second,
		WaitTimeout:         45 * time.Second,
		TypeCadence:         40 * time.Millisecond,
		SubmitFloor:         300 * time.Millisecond,
		EndGrace:            1500 * time.Millisecond,
		SpeechFallbackDelay: 600 * time.Millisecond,
		ScrollReveal:        4 * time.Second,
	}
}

// EventType identifies a runner event.
type EventType string

const (
	EventStarted        EventType = "started"
	EventStepStarted    EventType = "step_started"
	EventWaitSatisfied  EventType = "wait_satisfied"
	EventWaitTimeout    EventType = "wait_timeout"
	EventQuerySubmitted EventType = "query_submitted"
	EventFinished       EventType = "finished"
	EventStopped        EventType = "stopped"
)

// Event is emitted as the tour progresses.
type Event struct {
	Type      EventType
	Index     int
	Label     string
	Text      string
	Timestamp time.Time
}

// Stats describes the state of the current or most recent run.
type Stats struct {
	Running          bool
	Index            int
	StartedAt        *time.Time
	StepsCompleted   int
	WaitTimeouts     int
	QueriesSubmitted int
}

// Deps are the collaborators a runner drives. Nil fields default to no-ops.
type Deps struct {
	Speaker Speaker
	Surface stage.Surface
	Actions stage.Actions
	Chat    Chat

	// Warm, when set, is launched in the background on Start to pre-fetch
	// narration audio. Advisory: a run never waits for it.
	Warm func(ctx context.Context)
}

// Runner drives a step registry start-to-finish or until cancelled. It owns
// all run state: the cursor, every pending timer, and the current speech
// handle, so Stop can cancel everything atomically.
type Runner struct {
	cfg      Config
	registry *Registry
	speaker  Speaker
	surface  stage.Surface
	actions  stage.Actions
	chat     Chat
	warm     func(ctx context.Context)
	logger   zerolog.Logger
	events   chan Event

	mu        sync.Mutex
	running   bool
	gen       uint64
	index     int
	startedAt time.Time
	timers    map[int]*time.Timer
	nextTimer int
	speech    Speech
	ctx       context.Context
	cancel    context.CancelFunc
	stats     Stats
}

// New creates a runner over a validated registry.
func New(cfg Config, registry *Registry, deps Deps) *Runner {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = def.WaitTimeout
	}
	if cfg.TypeCadence <= 0 {
		cfg.TypeCadence = def.TypeCadence
	}
	if cfg.SubmitFloor <= 0 {
		cfg.SubmitFloor = def.SubmitFloor
	}
	if cfg.EndGrace <= 0 {
		cfg.EndGrace = def.EndGrace
	}
	if cfg.SpeechFallbackDelay <= 0 {
		cfg.SpeechFallbackDelay = def.SpeechFallbackDelay
	}
	if cfg.ScrollReveal <= 0 {
		cfg.ScrollReveal = def.ScrollReveal
	}

	if deps.Speaker == nil {
		deps.Speaker = silentSpeaker{}
	}
	if deps.Surface == nil {
		deps.Surface = stage.NopSurface{}
	}
	if deps.Actions == nil {
		deps.Actions = stage.NopActions{}
	}

	return &Runner{
		cfg:      cfg,
		registry: registry,
		speaker:  deps.Speaker,
		surface:  deps.Surface,
		actions:  deps.Actions,
		chat:     deps.Chat,
		warm:     deps.Warm,
		logger:   logging.Component("tour-runner"),
		events:   make(chan Event, 100),
		timers:   make(map[int]*time.Timer),
	}
}

// Start begins a run, or stops the current one: calling Start while running
// is the toggle contract and behaves exactly like Stop.
func (r *Runner) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.Stop()
		return
	}

	r.running = true
	r.gen++
	gen := r.gen
	r.index = 0
	r.startedAt = time.Now()
	startedAt := r.startedAt
	r.ctx, r.cancel = context.WithCancel(context.Background())
	ctx := r.ctx
	r.stats = Stats{Running: true, StartedAt: &startedAt}
	r.mu.Unlock()

	r.logger.Info().Int("steps", len(r.registry.Steps)).Str("tour", r.registry.Name).Msg("tour starting")

	r.surface.Open()
	r.emit(Event{Type: EventStarted})

	if r.warm != nil {
		go r.warm(ctx)
	}

	r.tickClock(gen)
	r.advance(gen)
}

// Stop cancels the run: every tracked timer, any playing audio, and any
// local speech synthesis, then restores the surface and rolls back
// demo-induced UI side effects. Idempotent.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.gen++
	if r.cancel != nil {
		r.cancel()
	}
	for id, timer := range r.timers {
		timer.Stop()
		delete(r.timers, id)
	}
	speech := r.speech
	r.speech = nil
	r.stats.Running = false
	completed := r.stats.StepsCompleted
	r.mu.Unlock()

	if speech != nil {
		speech.Stop()
	}
	r.speaker.Stop()

	r.surface.ClearInput()
	r.surface.Close()
	r.actions.RestoreLayout()

	r.emit(Event{Type: EventStopped})
	r.logger.Info().Int("steps_completed", completed).Msg("tour stopped")
}

// Running reports whether a run is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Stats returns a snapshot of run statistics.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := r.stats
	stats.Index = r.index
	return stats
}

// TrackedTimers reports how many timers are pending. Zero after Stop.
func (r *Runner) TrackedTimers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// SpeechActive reports whether narration audio is currently playing.
func (r *Runner) SpeechActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.speech != nil && r.speech.Playing()
}

// Events returns the channel of run events. Events are dropped, never
// blocked on, when the consumer falls behind.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// advance takes the next step, or finishes the run past the last one.
func (r *Runner) advance(gen uint64) {
	r.mu.Lock()
	if !r.aliveLocked(gen) {
		r.mu.Unlock()
		return
	}

	if r.index >= len(r.registry.Steps) {
		stillSpeaking := r.speech != nil && r.speech.Playing()
		r.mu.Unlock()
		r.emit(Event{Type: EventFinished})
		if stillSpeaking {
			// Let the final narration finish before teardown.
			r.schedule(gen, r.cfg.EndGrace, r.Stop)
			return
		}
		r.Stop()
		return
	}

	idx := r.index
	step := r.registry.Steps[idx]
	r.index++
	r.mu.Unlock()

	r.emit(Event{Type: EventStepStarted, Index: idx, Label: step.Label, Text: step.Narration})
	r.logger.Debug().Int("index", idx).Str("label", step.Label).Msg("step starting")
	r.execute(gen, idx, step)
}

// execute runs one step per the state machine: the wait branch, the
// voice-query branch, or the plain branch, in that precedence order.
func (r *Runner) execute(gen uint64, idx int, step Step) {
	r.surface.SetLabel(step.Label)
	if step.Narration != "" {
		r.surface.AppendTranscript("narrator", step.Narration)
	}
	r.runAction(idx, step)

	switch {
	case step.WaitFor != nil:
		r.speakThen(gen, step.Narration, r.registry.Voice, func() {
			r.waitFor(gen, step, func(satisfied bool) {
				r.finishWait(gen, idx, step, satisfied)
			})
		})

	case step.VoiceQuery != "":
		r.speakThen(gen, step.Narration, r.registry.Voice, func() {
			r.runVoiceQuery(gen, step.VoiceQuery, func() {
				r.mu.Lock()
				r.stats.QueriesSubmitted++
				r.mu.Unlock()
				r.emit(Event{Type: EventQuerySubmitted, Index: idx, Text: step.VoiceQuery})
				pause := step.PauseAfter
				if pause < r.cfg.SubmitFloor {
					pause = r.cfg.SubmitFloor
				}
				r.scheduleAdvance(gen, pause)
			})
		})

	default:
		r.speakThen(gen, step.Narration, r.registry.Voice, func() {
			r.scheduleAdvance(gen, step.PauseAfter)
		})
	}
}

// finishWait handles predicate resolution: optional result narration with a
// slow transcript reveal, then advancement.
func (r *Runner) finishWait(gen uint64, idx int, step Step, satisfied bool) {
	if satisfied {
		r.emit(Event{Type: EventWaitSatisfied, Index: idx})
	} else {
		r.mu.Lock()
		r.stats.WaitTimeouts++
		r.mu.Unlock()
		r.emit(Event{Type: EventWaitTimeout, Index: idx})
		r.logger.Debug().Int("index", idx).Msg("wait timed out, advancing")
	}

	if step.ResultNarration == "" {
		r.scheduleAdvance(gen, step.PauseAfter)
		return
	}

	r.surface.AppendTranscript("narrator", step.ResultNarration)
	r.surface.ScrollReveal(r.cfg.ScrollReveal)
	r.speakThen(gen, step.ResultNarration, r.registry.Voice, func() {
		r.scheduleAdvance(gen, step.PauseAfter)
	})
}

// speakThen plays text and invokes then when playback ends. Synthesis
// failures degrade: the continuation fires after a short fixed delay, so
// narration problems never stall the tour. Empty text continues at once.
func (r *Runner) speakThen(gen uint64, text, voice string, then func()) {
	if text == "" {
		r.schedule(gen, 0, then)
		return
	}

	r.mu.Lock()
	if !r.aliveLocked(gen) {
		r.mu.Unlock()
		return
	}
	ctx := r.ctx
	r.mu.Unlock()

	go func() {
		speech, err := r.speaker.Say(ctx, text, voice)
		if err != nil {
			r.logger.Warn().Err(err).Msg("narration unavailable, continuing after delay")
			r.schedule(gen, r.cfg.SpeechFallbackDelay, then)
			return
		}

		r.mu.Lock()
		if !r.aliveLocked(gen) {
			r.mu.Unlock()
			speech.Stop()
			return
		}
		r.speech = speech
		r.mu.Unlock()

		select {
		case <-speech.Done():
			r.schedule(gen, 0, then)
		case <-ctx.Done():
		}
	}()
}

// runAction invokes the step's side effect, isolating panics so the
// advancement schedule always fires.
func (r *Runner) runAction(idx int, step Step) {
	if step.Action == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Int("index", idx).Interface("panic", rec).Msg("step action panicked")
		}
	}()
	step.Action()
}

// scheduleAdvance books the step completion and the next advancement.
func (r *Runner) scheduleAdvance(gen uint64, pause time.Duration) {
	r.mu.Lock()
	if !r.aliveLocked(gen) {
		r.mu.Unlock()
		return
	}
	r.stats.StepsCompleted++
	r.mu.Unlock()

	r.schedule(gen, pause, func() { r.advance(gen) })
}

// schedule books fn on a tracked timer. The callback double-checks run
// liveness under the lock before firing, so a Stop between scheduling and
// firing makes it a no-op; Stop also cancels the timer itself.
func (r *Runner) schedule(gen uint64, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.aliveLocked(gen) {
		return
	}

	id := r.nextTimer
	r.nextTimer++
	r.timers[id] = time.AfterFunc(d, func() {
		r.mu.Lock()
		if _, tracked := r.timers[id]; !tracked || !r.aliveLocked(gen) {
			r.mu.Unlock()
			return
		}
		delete(r.timers, id)
		r.mu.Unlock()
		fn()
	})
}

// tickClock drives the overlay timer readout once per second.
func (r *Runner) tickClock(gen uint64) {
	r.mu.Lock()
	startedAt := r.startedAt
	r.mu.Unlock()

	r.surface.SetTimer(time.Since(startedAt))
	r.schedule(gen, time.Second, func() { r.tickClock(gen) })
}

func (r *Runner) aliveLocked(gen uint64) bool {
	return r.running && r.gen == gen
}

// emit sends a run event without ever blocking the runner.
func (r *Runner) emit(event Event) {
	event.Timestamp = time.Now()
	select {
	case r.events <- event:
	default:
	}
}

// silentSpeaker treats every line as finishing instantly.
type silentSpeaker struct{}

func (silentSpeaker) Say(ctx context.Context, text, voice string) (Speech, error) {
	return doneSpeech{}, nil
}

func (silentSpeaker) Stop() {}

type doneSpeech struct{}

func (doneSpeech) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (doneSpeech) Stop()         {}
func (doneSpeech) Playing() bool { return false }
