package tour

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeSpeech finishes after a fixed duration unless stopped first.
type fakeSpeech struct {
	done chan struct{}
	once sync.Once
	tmr  *time.Timer
}

func newFakeSpeech(d time.Duration) *fakeSpeech {
	s := &fakeSpeech{done: make(chan struct{})}
	s.tmr = time.AfterFunc(d, func() { s.once.Do(func() { close(s.done) }) })
	return s
}

func (s *fakeSpeech) Done() <-chan struct{} { return s.done }

func (s *fakeSpeech) Stop() {
	s.tmr.Stop()
	s.once.Do(func() { close(s.done) })
}

func (s *fakeSpeech) Playing() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// fakeSpeaker plays every line with a configurable duration per voice.
type fakeSpeaker struct {
	mu        sync.Mutex
	durations map[string]time.Duration // by voice
	fallback  time.Duration
	fail      bool
	spoken    []string
	stops     int
	active    []*fakeSpeech
}

func newFakeSpeaker(fallback time.Duration) *fakeSpeaker {
	return &fakeSpeaker{
		durations: make(map[string]time.Duration),
		fallback:  fallback,
	}
}

func (f *fakeSpeaker) Say(ctx context.Context, text, voice string) (Speech, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("synthesis unavailable")
	}
	d, ok := f.durations[voice]
	if !ok {
		d = f.fallback
	}
	speech := newFakeSpeech(d)
	f.spoken = append(f.spoken, text)
	f.active = append(f.active, speech)
	return speech, nil
}

func (f *fakeSpeaker) Stop() {
	f.mu.Lock()
	active := f.active
	f.active = nil
	f.stops++
	f.mu.Unlock()
	for _, speech := range active {
		speech.Stop()
	}
}

func (f *fakeSpeaker) spokenLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

// fakeChat implements Chat and ChatObserver.
type fakeChat struct {
	mu       sync.Mutex
	draft    string
	resets   int
	submits  []string
	awaiting bool
}

func (c *fakeChat) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

func (c *fakeChat) ResetBusy() {
	c.mu.Lock()
	c.resets++
	c.mu.Unlock()
}

func (c *fakeChat) Submit(ctx context.Context) error {
	c.mu.Lock()
	c.submits = append(c.submits, c.draft)
	c.awaiting = true
	c.mu.Unlock()
	return nil
}

func (c *fakeChat) AwaitingReply() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.awaiting
}

func (c *fakeChat) reply() {
	c.mu.Lock()
	c.awaiting = false
	c.mu.Unlock()
}

func (c *fakeChat) submitted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.submits...)
}

func fastConfig() Config {
	return Config{
		PollInterval:        20 * time.Millisecond,
		WaitTimeout:         2 * time.Second,
		TypeCadence:         5 * time.Millisecond,
		SubmitFloor:         10 * time.Millisecond,
		EndGrace:            20 * time.Millisecond,
		SpeechFallbackDelay: 10 * time.Millisecond,
		ScrollReveal:        50 * time.Millisecond,
	}
}

func plainRegistry(steps ...Step) *Registry {
	return &Registry{Name: "test", Voice: "aria", UserVoice: "guy", Steps: steps}
}

func waitStopped(t *testing.T, r *Runner) {
	t.Helper()
	require.Eventually(t, func() bool { return !r.Running() }, 5*time.Second, 5*time.Millisecond,
		"tour should have stopped")
}

func TestRunner_VisitsStepsInOrder(t *testing.T) {
	var mu sync.Mutex
	var visited []int
	record := func(i int) func() {
		return func() {
			mu.Lock()
			visited = append(visited, i)
			mu.Unlock()
		}
	}

	var polls int
	registry := plainRegistry(
		Step{Narration: "A", Action: record(0), PauseAfter: 100 * time.Millisecond},
		Step{Action: record(1), WaitFor: func() bool {
			mu.Lock()
			defer mu.Unlock()
			polls++
			return polls > 2
		}},
		Step{Action: record(2)},
	)

	r := New(fastConfig(), registry, Deps{Speaker: newFakeSpeaker(10 * time.Millisecond)})
	started := time.Now()
	r.Start()
	waitStopped(t, r)
	elapsed := time.Since(started)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{0, 1, 2}, visited, "each step visited exactly once, in order")
	require.GreaterOrEqual(t, elapsed, 100*time.Millisecond+2*20*time.Millisecond,
		"pause and two poll intervals must have elapsed")

	stats := r.Stats()
	require.Equal(t, 3, stats.StepsCompleted)
	require.Equal(t, 0, stats.WaitTimeouts)
}

func TestRunner_StopLeavesNoTimersOrAudio(t *testing.T) {
	speaker := newFakeSpeaker(500 * time.Millisecond)
	registry := plainRegistry(
		Step{Narration: "a long narrated step", PauseAfter: time.Second},
		Step{Narration: "never reached"},
	)

	r := New(fastConfig(), registry, Deps{Speaker: speaker})
	r.Start()

	// Stop mid-narration of the first step.
	require.Eventually(t, func() bool { return r.SpeechActive() }, time.Second, 2*time.Millisecond)
	r.Stop()

	require.Equal(t, 0, r.TrackedTimers(), "no pending timers after stop")
	require.False(t, r.SpeechActive(), "no playing audio after stop")
	require.False(t, r.Running())

	// Nothing fires later either.
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 0, r.TrackedTimers())
	require.Len(t, speaker.spokenLines(), 1)
}

func TestRunner_StartWhileRunningIsStop(t *testing.T) {
	registry := plainRegistry(
		Step{Narration: "one", PauseAfter: time.Second},
		Step{Narration: "two"},
	)

	toggled := New(fastConfig(), registry, Deps{Speaker: newFakeSpeaker(300 * time.Millisecond)})
	toggled.Start()
	toggled.Start() // toggle: acts as Stop

	stopped := New(fastConfig(), registry, Deps{Speaker: newFakeSpeaker(300 * time.Millisecond)})
	stopped.Start()
	stopped.Stop()

	require.Equal(t, stopped.Running(), toggled.Running())
	require.Equal(t, stopped.TrackedTimers(), toggled.TrackedTimers())
	require.False(t, toggled.Running())
	require.Equal(t, 0, toggled.TrackedTimers())
}

func TestRunner_StopIsIdempotent(t *testing.T) {
	r := New(fastConfig(), plainRegistry(Step{Narration: "x"}), Deps{})
	r.Start()
	r.Stop()
	r.Stop()
	r.Stop()
	require.False(t, r.Running())
	require.Equal(t, 0, r.TrackedTimers())
}

func TestRunner_EachActionRunsExactlyOnce(t *testing.T) {
	counts := make([]int, 3)
	var mu sync.Mutex
	actionFor := func(i int) func() {
		return func() {
			mu.Lock()
			counts[i]++
			mu.Unlock()
		}
	}

	registry := plainRegistry(
		Step{Narration: "a", Action: actionFor(0), PauseAfter: 10 * time.Millisecond},
		Step{Action: actionFor(1)},
		Step{Narration: "c", Action: actionFor(2)},
	)

	r := New(fastConfig(), registry, Deps{Speaker: newFakeSpeaker(15 * time.Millisecond)})
	r.Start()
	waitStopped(t, r)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{1, 1, 1}, counts)
}

func TestRunner_StopDuringPollingPreventsNextStep(t *testing.T) {
	var step3Ran bool
	var mu sync.Mutex

	registry := plainRegistry(
		Step{Narration: "intro", PauseAfter: 10 * time.Millisecond},
		Step{WaitFor: func() bool { return false }, WaitTimeout: 10 * time.Second},
		Step{Action: func() {
			mu.Lock()
			step3Ran = true
			mu.Unlock()
		}},
	)

	r := New(fastConfig(), registry, Deps{Speaker: newFakeSpeaker(5 * time.Millisecond)})
	r.Start()

	// Let the run reach the polling phase of step 2, then stop.
	require.Eventually(t, func() bool { return r.Stats().Index >= 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	r.Stop()

	time.Sleep(150 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.False(t, step3Ran, "step 3 must never execute after a stop during step 2's wait")
	require.Equal(t, 0, r.TrackedTimers())
}

func TestRunner_WaitTimeoutBounded(t *testing.T) {
	cfg := fastConfig()
	cfg.PollInterval = 50 * time.Millisecond

	var mu sync.Mutex
	var advancedAt time.Time
	registry := plainRegistry(
		Step{WaitFor: func() bool { return false }, WaitTimeout: 300 * time.Millisecond},
		Step{Action: func() {
			mu.Lock()
			advancedAt = time.Now()
			mu.Unlock()
		}},
	)

	r := New(cfg, registry, Deps{})
	started := time.Now()
	r.Start()
	waitStopped(t, r)

	mu.Lock()
	defer mu.Unlock()
	require.False(t, advancedAt.IsZero(), "tour must advance past a dead predicate")
	waited := advancedAt.Sub(started)
	require.GreaterOrEqual(t, waited, 250*time.Millisecond, "not earlier than timeout minus one interval")
	require.Less(t, waited, time.Second, "not indefinitely later")

	require.Equal(t, 1, r.Stats().WaitTimeouts)
}

func TestRunner_ResultNarrationAfterWait(t *testing.T) {
	speaker := newFakeSpeaker(10 * time.Millisecond)
	satisfied := false
	var mu sync.Mutex

	registry := plainRegistry(
		Step{
			Narration: "asking",
			WaitFor: func() bool {
				mu.Lock()
				defer mu.Unlock()
				return satisfied
			},
			ResultNarration: "here is the answer",
		},
	)

	r := New(fastConfig(), registry, Deps{Speaker: speaker})
	r.Start()

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	satisfied = true
	mu.Unlock()

	waitStopped(t, r)
	require.Contains(t, speaker.spokenLines(), "here is the answer")
}

func TestRunner_ActionPanicDoesNotStallTour(t *testing.T) {
	reached := false
	var mu sync.Mutex

	registry := plainRegistry(
		Step{Action: func() { panic("boom") }, PauseAfter: 5 * time.Millisecond},
		Step{Action: func() {
			mu.Lock()
			reached = true
			mu.Unlock()
		}},
	)

	r := New(fastConfig(), registry, Deps{})
	r.Start()
	waitStopped(t, r)

	mu.Lock()
	defer mu.Unlock()
	require.True(t, reached, "a panicking action must not abort the sequence")
}

func TestRunner_SpeechFailureDegradesToDelay(t *testing.T) {
	speaker := newFakeSpeaker(10 * time.Millisecond)
	speaker.fail = true

	done := false
	var mu sync.Mutex
	registry := plainRegistry(
		Step{Narration: "unhearable", PauseAfter: 5 * time.Millisecond},
		Step{Action: func() {
			mu.Lock()
			done = true
			mu.Unlock()
		}},
	)

	r := New(fastConfig(), registry, Deps{Speaker: speaker})
	r.Start()
	waitStopped(t, r)

	mu.Lock()
	defer mu.Unlock()
	require.True(t, done, "synthesis failure must never halt the sequence")
}

func TestRunner_EmitsLifecycleEvents(t *testing.T) {
	registry := plainRegistry(Step{Narration: "only", Label: "Only step"})
	r := New(fastConfig(), registry, Deps{Speaker: newFakeSpeaker(5 * time.Millisecond)})

	r.Start()
	waitStopped(t, r)

	types := map[EventType]bool{}
	for {
		select {
		case ev := <-r.Events():
			types[ev.Type] = true
		default:
			require.True(t, types[EventStarted])
			require.True(t, types[EventStepStarted])
			require.True(t, types[EventFinished])
			require.True(t, types[EventStopped])
			return
		}
	}
}

func TestRunner_RestoresSurfaceOnStop(t *testing.T) {
	surface := newRecordingSurface()
	actions := newRecordingActions()
	registry := plainRegistry(
		Step{Narration: "one", Action: func() {}, PauseAfter: time.Second},
		Step{Narration: "two"},
	)

	r := New(fastConfig(), registry, Deps{
		Speaker: newFakeSpeaker(200 * time.Millisecond),
		Surface: surface,
		Actions: actions,
	})
	r.Start()
	time.Sleep(30 * time.Millisecond)
	r.Stop()

	require.True(t, surface.closed(), "surface must be closed on stop")
	require.GreaterOrEqual(t, actions.count("restore_layout"), 1,
		"UI side effects must be rolled back on stop")
}
