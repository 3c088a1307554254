package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	err := writeTable(&buf, []string{"NAME", "STEPS"}, [][]string{
		{"fleet-overview", "9"},
		{"morning-check", "4"},
	})
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "NAME")
	require.Contains(t, out, "fleet-overview")
	require.Contains(t, out, "morning-check")
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "exactly te", truncate("exactly te", 10))
	require.Equal(t, "a long li…", truncate("a long line of text", 10))
}
