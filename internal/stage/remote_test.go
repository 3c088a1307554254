package stage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opentelematics/fleetdeck/internal/events"
)

func TestRemoteSurfacePublishes(t *testing.T) {
	bus := events.NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	surface := NewRemoteSurface(bus)
	surface.Open()
	surface.SetLabel("Step 1")
	surface.SetTimer(65 * time.Second)
	surface.AppendTranscript("narrator", "welcome")
	surface.SetInput("wh")
	surface.ClearInput()
	surface.ScrollReveal(4 * time.Second)
	surface.Close()

	types := make([]string, 0, 8)
	for len(ch) > 0 {
		types = append(types, (<-ch).Type)
	}
	require.Equal(t, []string{
		CmdSurfaceOpen,
		CmdSurfaceLabel,
		CmdSurfaceTimer,
		CmdSurfaceTranscript,
		CmdSurfaceInput,
		CmdSurfaceInputClear,
		CmdSurfaceScroll,
		CmdSurfaceClose,
	}, types)
}

func TestRemoteActionsPayloads(t *testing.T) {
	bus := events.NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	actions := NewRemoteActions(bus)
	actions.SelectVehicle("van-104")
	actions.ToggleIsolation(true)
	actions.SeekReplay(0.25)
	actions.RestoreLayout()

	sel := <-ch
	require.Equal(t, CmdActionSelect, sel.Type)
	require.Equal(t, "van-104", sel.Payload["id"])

	iso := <-ch
	require.Equal(t, CmdActionIsolate, iso.Type)
	require.Equal(t, true, iso.Payload["on"])

	seek := <-ch
	require.Equal(t, CmdActionReplaySeek, seek.Type)
	require.Equal(t, 0.25, seek.Payload["fraction"])

	require.Equal(t, CmdActionRestore, (<-ch).Type)
}

func TestWatchModelApply(t *testing.T) {
	m := newWatchModel(nil)

	m.apply(events.Command{Type: CmdSurfaceOpen})
	require.True(t, m.running)

	m.apply(events.Command{Type: CmdSurfaceLabel, Payload: map[string]any{"text": "Faults"}})
	require.Equal(t, "Faults", m.label)

	m.apply(events.Command{Type: CmdSurfaceTranscript, Payload: map[string]any{"role": "user", "text": "hi"}})
	require.Len(t, m.transcript, 1)

	m.apply(events.Command{Type: CmdSurfaceInput, Payload: map[string]any{"text": "wh"}})
	require.Equal(t, "wh", m.input)
	m.apply(events.Command{Type: CmdSurfaceInputClear})
	require.Empty(t, m.input)

	m.apply(events.Command{Type: CmdSurfaceClose})
	require.False(t, m.running)

	view := m.View()
	require.Contains(t, view, "q to quit")
}
