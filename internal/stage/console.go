package stage

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/opentelematics/fleetdeck/internal/logging"
)

type consoleStyles struct {
	label    lipgloss.Style
	narrator lipgloss.Style
	user     lipgloss.Style
	system   lipgloss.Style
	input    lipgloss.Style
	muted    lipgloss.Style
}

func defaultConsoleStyles() consoleStyles {
	return consoleStyles{
		label:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7AA2F7")),
		narrator: lipgloss.NewStyle().Foreground(lipgloss.Color("#C0CAF5")),
		user:     lipgloss.NewStyle().Foreground(lipgloss.Color("#9ECE6A")),
		system:   lipgloss.NewStyle().Foreground(lipgloss.Color("#E0AF68")),
		input:    lipgloss.NewStyle().Foreground(lipgloss.Color("#565F89")),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("#414868")),
	}
}

// ConsoleSurface renders tour progress as styled lines on a terminal. The
// typewriter reveal is collapsed to the final line: per-character reprints
// are noise on a scrolling console.
type ConsoleSurface struct {
	styles consoleStyles

	mu    sync.Mutex
	out   io.Writer
	input string
}

// NewConsoleSurface creates a surface writing to out.
func NewConsoleSurface(out io.Writer) *ConsoleSurface {
	return &ConsoleSurface{
		styles: defaultConsoleStyles(),
		out:    out,
	}
}

func (s *ConsoleSurface) Open() {
	s.println(s.styles.muted.Render("── tour started ──"))
}

func (s *ConsoleSurface) Close() {
	s.println(s.styles.muted.Render("── tour ended ──"))
}

func (s *ConsoleSurface) SetLabel(text string) {
	if text == "" {
		return
	}
	s.println(s.styles.label.Render("▸ " + text))
}

// SetTimer is dropped on the console: a once-per-second reprint of elapsed
// time has no place in a scrolling log.
func (s *ConsoleSurface) SetTimer(time.Duration) {}

func (s *ConsoleSurface) AppendTranscript(role, text string) {
	var style lipgloss.Style
	switch role {
	case "user":
		style = s.styles.user
	case "system":
		style = s.styles.system
	default:
		style = s.styles.narrator
	}
	s.println(style.Render(fmt.Sprintf("%s: %s", role, text)))
}

func (s *ConsoleSurface) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
}

func (s *ConsoleSurface) ClearInput() {
	s.mu.Lock()
	input := s.input
	s.input = ""
	s.mu.Unlock()
	if input != "" {
		s.println(s.styles.input.Render("> " + input))
	}
}

func (s *ConsoleSurface) ScrollReveal(time.Duration) {}

func (s *ConsoleSurface) println(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, line)
}

// LogActions records map and panel operations through the structured logger.
// Used headless, where there is no dashboard to drive.
type LogActions struct {
	logger zerolog.Logger
}

// NewLogActions creates logging actions.
func NewLogActions() *LogActions {
	return &LogActions{logger: logging.Component("stage")}
}

func (a *LogActions) FitAllMarkers() { a.logger.Info().Msg("fit all markers") }

func (a *LogActions) SelectVehicle(id string) {
	a.logger.Info().Str("vehicle", id).Msg("select vehicle")
}

func (a *LogActions) OpenPanel(name string) {
	a.logger.Info().Str("panel", name).Msg("open panel")
}

func (a *LogActions) ClosePanel(name string) {
	a.logger.Info().Str("panel", name).Msg("close panel")
}

func (a *LogActions) ToggleIsolation(on bool) {
	a.logger.Info().Bool("on", on).Msg("toggle isolation")
}

func (a *LogActions) StartReplay(tripID string) {
	a.logger.Info().Str("trip", tripID).Msg("start replay")
}

func (a *LogActions) PauseReplay() { a.logger.Info().Msg("pause replay") }

func (a *LogActions) SeekReplay(fraction float64) {
	a.logger.Info().Float64("fraction", fraction).Msg("seek replay")
}

func (a *LogActions) ToggleTheme(theme string) {
	a.logger.Info().Str("theme", theme).Msg("toggle theme")
}

func (a *LogActions) RestoreLayout() { a.logger.Info().Msg("restore layout") }
