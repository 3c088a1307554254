// Package stage defines the capability surfaces the demo-tour runner drives.
//
// The runner never touches a concrete map, DOM, or terminal; it sees only
// these interfaces, so the core sequencing logic is testable without a real
// rendering environment.
package stage

import "time"

// Surface is the presentation layer of a running tour: overlay label, timer
// readout, transcript panel, and the chat input field.
type Surface interface {
	// Open prepares the surface for a run: shows the overlay scaffold and
	// zeroes the timer.
	Open()

	// Close tears the surface down after a short fade and restores the
	// pre-demo layout.
	Close()

	// SetLabel updates the overlay label for the active step.
	SetLabel(text string)

	// SetTimer updates the elapsed-time readout.
	SetTimer(elapsed time.Duration)

	// AppendTranscript adds a line to the visible transcript. Role is
	// "narrator", "user", or "assistant".
	AppendTranscript(role, text string)

	// SetInput replaces the visible content of the chat input field; the
	// typewriter reveal calls this once per character.
	SetInput(text string)

	// ClearInput empties the chat input field.
	ClearInput()

	// ScrollReveal begins a slow auto-scroll of the transcript so an
	// asynchronous result is revealed while its narration plays.
	ScrollReveal(duration time.Duration)
}

// Actions is the demo-drivable surface: named, idempotent, fire-and-forget
// map and UI operations a step may invoke.
type Actions interface {
	FitAllMarkers()
	SelectVehicle(id string)
	OpenPanel(name string)
	ClosePanel(name string)
	ToggleIsolation(on bool)
	StartReplay(tripID string)
	PauseReplay()
	SeekReplay(fraction float64)
	ToggleTheme(theme string)

	// RestoreLayout reverts every demo-induced side effect: closes detail
	// panels, restores hidden markers, clears ephemeral overlays. Called
	// unconditionally on stop.
	RestoreLayout()
}

// NopSurface ignores every call. Useful headless and in tests.
type NopSurface struct{}

func (NopSurface) Open()                           {}
func (NopSurface) Close()                          {}
func (NopSurface) SetLabel(string)                 {}
func (NopSurface) SetTimer(time.Duration)          {}
func (NopSurface) AppendTranscript(string, string) {}
func (NopSurface) SetInput(string)                 {}
func (NopSurface) ClearInput()                     {}
func (NopSurface) ScrollReveal(time.Duration)      {}

// NopActions ignores every call.
type NopActions struct{}

func (NopActions) FitAllMarkers()       {}
func (NopActions) SelectVehicle(string) {}
func (NopActions) OpenPanel(string)     {}
func (NopActions) ClosePanel(string)    {}
func (NopActions) ToggleIsolation(bool) {}
func (NopActions) StartReplay(string)   {}
func (NopActions) PauseReplay()         {}
func (NopActions) SeekReplay(float64)   {}
func (NopActions) ToggleTheme(string)   {}
func (NopActions) RestoreLayout()       {}
