// Package logging configures zerolog for fleetdeck components.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	root   zerolog.Logger
	inited bool
)

// Setup initializes the root logger. Level is one of trace, debug, info,
// warn, error; an empty or unknown value falls back to info. When pretty is
// true, output goes through a console writer suitable for terminals.
func Setup(level string, pretty bool) {
	mu.Lock()
	defer mu.Unlock()

	var out io.Writer = os.Stderr
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	root = zerolog.New(out).Level(parseLevel(level)).With().Timestamp().Logger()
	inited = true
}

// Component returns a logger tagged with a component name.
func Component(name string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()

	if !inited {
		return zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().
			Timestamp().Str("component", name).Logger()
	}
	return root.With().Str("component", name).Logger()
}

// SetOutput redirects the root logger, primarily for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	root = root.Output(w)
	inited = true
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
