package narration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// ErrNoPlayer indicates no audio playback command was found on the host.
var ErrNoPlayer = errors.New("no audio player found")

// Playback is a single in-flight utterance.
type Playback interface {
	// Done is closed when playback finishes or is stopped.
	Done() <-chan struct{}

	// Stop halts playback immediately. Safe to call more than once.
	Stop()

	// Playing reports whether audio is still audible.
	Playing() bool
}

// Player starts playback of resolved audio.
type Player interface {
	Play(ctx context.Context, audio *Audio) (Playback, error)
}

type playback struct {
	done chan struct{}
	once sync.Once
	halt func()
}

func newPlayback(halt func()) *playback {
	return &playback{done: make(chan struct{}), halt: halt}
}

func (p *playback) Done() <-chan struct{} { return p.done }

func (p *playback) Stop() {
	p.once.Do(func() {
		if p.halt != nil {
			p.halt()
		}
		close(p.done)
	})
}

func (p *playback) finish() {
	p.once.Do(func() { close(p.done) })
}

func (p *playback) Playing() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// ExecPlayer plays audio by shelling out to the host playback command.
type ExecPlayer struct {
	// Command overrides player discovery when set.
	Command string

	// LookPath is swappable for tests; defaults to exec.LookPath.
	LookPath func(string) (string, error)
}

// Play writes the payload to a temp file and runs the player on it.
func (e *ExecPlayer) Play(ctx context.Context, audio *Audio) (Playback, error) {
	if audio == nil || len(audio.Data) == 0 {
		return nil, fmt.Errorf("audio payload is empty")
	}

	command, err := e.resolveCommand()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "fleetdeck-play-")
	if err != nil {
		return nil, fmt.Errorf("create playback temp dir: %w", err)
	}
	path := filepath.Join(dir, "line."+audio.Format)
	if err := os.WriteFile(path, audio.Data, 0o644); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("write playback file: %w", err)
	}

	playCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(playCtx, command, playerArgs(command, path)...)
	if err := cmd.Start(); err != nil {
		cancel()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("start player: %w", err)
	}

	pb := newPlayback(cancel)
	go func() {
		defer os.RemoveAll(dir)
		defer cancel()
		_ = cmd.Wait()
		pb.finish()
	}()
	return pb, nil
}

func (e *ExecPlayer) resolveCommand() (string, error) {
	lookPath := e.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	candidates := []string{e.Command, "afplay", "mpg123", "ffplay", "aplay"}
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if path, err := lookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", ErrNoPlayer
}

func playerArgs(command, path string) []string {
	if filepath.Base(command) == "ffplay" {
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", path}
	}
	return []string{path}
}

// ClockPlayer simulates playback by waiting out the estimated duration of
// the line. Used for headless runs and tests, where pacing still matters
// but no audio device is available.
type ClockPlayer struct {
	// Scale compresses or stretches estimated durations; 0 means 1.0.
	Scale float64
}

// Play returns a playback handle that finishes after the estimated duration.
func (c *ClockPlayer) Play(ctx context.Context, audio *Audio) (Playback, error) {
	if audio == nil {
		return nil, fmt.Errorf("audio is nil")
	}

	duration := audio.Duration()
	if c.Scale > 0 {
		duration = time.Duration(float64(duration) * c.Scale)
	}

	timer := time.NewTimer(duration)
	pb := newPlayback(func() { timer.Stop() })
	go func() {
		select {
		case <-timer.C:
			pb.finish()
		case <-ctx.Done():
			pb.Stop()
		case <-pb.done:
		}
	}()
	return pb, nil
}
