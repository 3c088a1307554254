package stage

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConsoleSurface(t *testing.T) {
	var buf bytes.Buffer
	surface := NewConsoleSurface(&buf)

	surface.Open()
	surface.SetLabel("Overview")
	surface.SetTimer(10 * time.Second) // dropped
	surface.AppendTranscript("narrator", "welcome aboard")
	surface.SetInput("which vehicles")
	surface.ClearInput()
	surface.Close()

	out := buf.String()
	require.Contains(t, out, "Overview")
	require.Contains(t, out, "narrator: welcome aboard")
	require.Contains(t, out, "> which vehicles")
	require.Contains(t, out, "tour started")
	require.Contains(t, out, "tour ended")
}

func TestConsoleSurfaceEmptyInputClear(t *testing.T) {
	var buf bytes.Buffer
	surface := NewConsoleSurface(&buf)

	surface.ClearInput()
	require.NotContains(t, buf.String(), ">")
}
