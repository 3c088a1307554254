package stage

import (
	"time"

	"github.com/opentelematics/fleetdeck/internal/events"
)

// Command types published for attached dashboards.
const (
	CmdSurfaceOpen       = "surface.open"
	CmdSurfaceClose      = "surface.close"
	CmdSurfaceLabel      = "surface.label"
	CmdSurfaceTimer      = "surface.timer"
	CmdSurfaceTranscript = "surface.transcript"
	CmdSurfaceInput      = "surface.input"
	CmdSurfaceInputClear = "surface.input_clear"
	CmdSurfaceScroll     = "surface.scroll"

	CmdActionFitAll      = "action.fit_all_markers"
	CmdActionSelect      = "action.select_vehicle"
	CmdActionOpenPanel   = "action.open_panel"
	CmdActionClosePanel  = "action.close_panel"
	CmdActionIsolate     = "action.isolate"
	CmdActionReplayStart = "action.replay_start"
	CmdActionReplayPause = "action.replay_pause"
	CmdActionReplaySeek  = "action.replay_seek"
	CmdActionTheme       = "action.theme"
	CmdActionRestore     = "action.restore_layout"
)

// RemoteSurface publishes surface updates onto the event bus so any attached
// dashboard, browser or terminal, can render them.
type RemoteSurface struct {
	bus *events.Bus
}

// NewRemoteSurface creates a bus-backed surface.
func NewRemoteSurface(bus *events.Bus) *RemoteSurface {
	return &RemoteSurface{bus: bus}
}

func (s *RemoteSurface) Open()  { s.bus.Publish(CmdSurfaceOpen, nil) }
func (s *RemoteSurface) Close() { s.bus.Publish(CmdSurfaceClose, nil) }

func (s *RemoteSurface) SetLabel(text string) {
	s.bus.Publish(CmdSurfaceLabel, map[string]any{"text": text})
}

func (s *RemoteSurface) SetTimer(elapsed time.Duration) {
	s.bus.Publish(CmdSurfaceTimer, map[string]any{"seconds": int(elapsed.Seconds())})
}

func (s *RemoteSurface) AppendTranscript(role, text string) {
	s.bus.Publish(CmdSurfaceTranscript, map[string]any{"role": role, "text": text})
}

func (s *RemoteSurface) SetInput(text string) {
	s.bus.Publish(CmdSurfaceInput, map[string]any{"text": text})
}

func (s *RemoteSurface) ClearInput() {
	s.bus.Publish(CmdSurfaceInputClear, nil)
}

func (s *RemoteSurface) ScrollReveal(duration time.Duration) {
	s.bus.Publish(CmdSurfaceScroll, map[string]any{"millis": duration.Milliseconds()})
}

// RemoteActions publishes map and panel operations onto the event bus.
type RemoteActions struct {
	bus *events.Bus
}

// NewRemoteActions creates bus-backed actions.
func NewRemoteActions(bus *events.Bus) *RemoteActions {
	return &RemoteActions{bus: bus}
}

func (a *RemoteActions) FitAllMarkers() { a.bus.Publish(CmdActionFitAll, nil) }

func (a *RemoteActions) SelectVehicle(id string) {
	a.bus.Publish(CmdActionSelect, map[string]any{"id": id})
}

func (a *RemoteActions) OpenPanel(name string) {
	a.bus.Publish(CmdActionOpenPanel, map[string]any{"panel": name})
}

func (a *RemoteActions) ClosePanel(name string) {
	a.bus.Publish(CmdActionClosePanel, map[string]any{"panel": name})
}

func (a *RemoteActions) ToggleIsolation(on bool) {
	a.bus.Publish(CmdActionIsolate, map[string]any{"on": on})
}

func (a *RemoteActions) StartReplay(tripID string) {
	a.bus.Publish(CmdActionReplayStart, map[string]any{"trip": tripID})
}

func (a *RemoteActions) PauseReplay() { a.bus.Publish(CmdActionReplayPause, nil) }

func (a *RemoteActions) SeekReplay(fraction float64) {
	a.bus.Publish(CmdActionReplaySeek, map[string]any{"fraction": fraction})
}

func (a *RemoteActions) ToggleTheme(theme string) {
	a.bus.Publish(CmdActionTheme, map[string]any{"theme": theme})
}

func (a *RemoteActions) RestoreLayout() { a.bus.Publish(CmdActionRestore, nil) }
