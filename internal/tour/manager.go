package tour

import (
	"context"
	"fmt"
	"sync"

	"github.com/opentelematics/fleetdeck/internal/logging"
	"github.com/rs/zerolog"
)

// WarmFunc pre-fetches narration audio for the given lines.
type WarmFunc func(ctx context.Context, lines []Line)

// Manager owns the available tour definitions and the single active runner.
// Starting a tour stops whichever one is running first; starting the tour
// that is already running is the toggle contract and just stops it.
type Manager struct {
	cfg    Config
	binder *Binder
	deps   Deps
	warm   WarmFunc
	logger zerolog.Logger

	mu     sync.Mutex
	defs   []*Definition
	runner *Runner
	name   string
}

// NewManager creates a manager over the given definitions.
func NewManager(cfg Config, binder *Binder, deps Deps, warm WarmFunc, defs []*Definition) *Manager {
	if binder == nil {
		binder = &Binder{}
	}
	return &Manager{
		cfg:    cfg,
		binder: binder,
		deps:   deps,
		warm:   warm,
		logger: logging.Component("tour-manager"),
		defs:   defs,
	}
}

// List returns the available tour definitions.
func (m *Manager) List() []*Definition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Definition(nil), m.defs...)
}

// Find returns the named definition, or the first one for an empty name.
func (m *Manager) Find(name string) (*Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.defs) == 0 {
		return nil, fmt.Errorf("no tours available")
	}
	if name == "" {
		return m.defs[0], nil
	}
	for _, def := range m.defs {
		if def.Name == name {
			return def, nil
		}
	}
	return nil, fmt.Errorf("unknown tour %q", name)
}

// Start begins the named tour, stopping any current run first. Starting the
// tour that is already running stops it and starts nothing.
func (m *Manager) Start(name string) error {
	def, err := m.Find(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	current := m.runner
	currentName := m.name
	m.mu.Unlock()

	if current != nil && current.Running() {
		current.Stop()
		if currentName == def.Name {
			return nil
		}
	}

	registry, err := m.binder.Bind(def)
	if err != nil {
		return fmt.Errorf("bind tour %s: %w", def.Name, err)
	}

	deps := m.deps
	if m.warm != nil {
		lines := registry.Lines()
		warm := m.warm
		deps.Warm = func(ctx context.Context) { warm(ctx, lines) }
	}

	runner := New(m.cfg, registry, deps)

	m.mu.Lock()
	m.runner = runner
	m.name = def.Name
	m.mu.Unlock()

	m.logger.Info().Str("tour", def.Name).Msg("starting tour")
	runner.Start()
	return nil
}

// Stop halts the active run, if any.
func (m *Manager) Stop() {
	m.mu.Lock()
	runner := m.runner
	m.mu.Unlock()
	if runner != nil {
		runner.Stop()
	}
}

// Running reports whether a tour is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	runner := m.runner
	m.mu.Unlock()
	return runner != nil && runner.Running()
}

// Status returns the active (or most recent) tour name and its stats.
func (m *Manager) Status() (string, Stats) {
	m.mu.Lock()
	runner := m.runner
	name := m.name
	m.mu.Unlock()
	if runner == nil {
		return "", Stats{}
	}
	return name, runner.Stats()
}

// Runner exposes the active runner. Nil before the first start.
func (m *Manager) Runner() *Runner {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runner
}

// HandlePhrase applies a spoken or typed control phrase, reporting whether
// the text was consumed. Wire this as the chat intercept.
func (m *Manager) HandlePhrase(text string) bool {
	verb, ok := MatchTrigger(text)
	if !ok {
		return false
	}

	switch verb {
	case "start":
		if err := m.Start(""); err != nil {
			m.logger.Warn().Err(err).Msg("trigger phrase could not start tour")
		}
	case "stop":
		m.Stop()
	}
	return true
}
