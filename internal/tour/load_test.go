package tour

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDefinition(t *testing.T) {
	data := []byte(`
name: morning-check
description: Quick situational sweep.
voice: aria
steps:
  - label: Welcome
    narration: Good morning.
    pause_after: 500ms
  - action: fit_all_markers
  - voice_query: any faults today?
  - narration: Checking.
    wait_for: chat_response
    wait_timeout: 20s
    result_narration: There we go.
`)

	def, err := parseDefinition(data)
	require.NoError(t, err)
	require.Equal(t, "morning-check", def.Name)
	require.Equal(t, "aria", def.Voice)
	require.Len(t, def.Steps, 4)
	require.Equal(t, "Welcome", def.Steps[0].Label)
	require.Equal(t, "500ms", def.Steps[0].PauseAfter)
	require.Equal(t, "chat_response", def.Steps[3].WaitFor)
}

func TestParseDefinitionErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing name", "steps:\n  - narration: hi\n"},
		{"no steps", "name: empty\n"},
		{"empty step", "name: t\nsteps:\n  - label: only a label\n"},
		{"bad duration", "name: t\nsteps:\n  - narration: hi\n    pause_after: soonish\n"},
		{"negative duration", "name: t\nsteps:\n  - narration: hi\n    wait_timeout: -5s\n"},
		{"conflicting advancement", "name: t\nsteps:\n  - voice_query: q\n    wait_for: chat_response\n"},
		{"not yaml", "{{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseDefinition([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestLoadDefinitionsFromDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("b.yaml", "name: beta\nsteps:\n  - narration: hi\n")
	write("a.yml", "name: alpha\nsteps:\n  - narration: hi\n")
	write("notes.txt", "not a tour")

	defs, err := LoadDefinitionsFromDir(dir)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	require.Equal(t, "alpha", defs[0].Name)
	require.Equal(t, "beta", defs[1].Name)
	require.Equal(t, filepath.Join(dir, "a.yml"), defs[0].Source)
}

func TestLoadDefinitionsFromDir_Missing(t *testing.T) {
	defs, err := LoadDefinitionsFromDir(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	require.Empty(t, defs)
}

func TestLoadBuiltinDefinitions(t *testing.T) {
	defs, err := LoadBuiltinDefinitions()
	require.NoError(t, err)
	require.NotEmpty(t, defs)

	var overview *Definition
	for _, def := range defs {
		require.Equal(t, "builtin", def.Source)
		if def.Name == "fleet-overview" {
			overview = def
		}
	}
	require.NotNil(t, overview, "the fleet-overview tour ships builtin")
	require.NotEmpty(t, overview.Steps)
}

func TestLoadDefinitions_ProjectOverridesBuiltin(t *testing.T) {
	project := t.TempDir()
	toursDir := filepath.Join(project, ".fleetdeck", "tours")
	require.NoError(t, os.MkdirAll(toursDir, 0o755))
	override := "name: fleet-overview\nsteps:\n  - narration: custom intro\n"
	require.NoError(t, os.WriteFile(filepath.Join(toursDir, "custom.yaml"), []byte(override), 0o644))

	defs, err := LoadDefinitions(project)
	require.NoError(t, err)

	found := 0
	for _, def := range defs {
		if def.Name == "fleet-overview" {
			found++
			require.NotEqual(t, "builtin", def.Source, "project definition wins over the builtin")
		}
	}
	require.Equal(t, 1, found, "names resolve to exactly one definition")
}

func TestParseOptionalDuration(t *testing.T) {
	d, err := parseOptionalDuration("  1.5s ")
	require.NoError(t, err)
	require.Equal(t, 1500*time.Millisecond, d)

	d, err = parseOptionalDuration("")
	require.NoError(t, err)
	require.Zero(t, d)
}
