package narration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// ErrNoLocalEngine indicates no usable speech command was found on the host.
var ErrNoLocalEngine = errors.New("no local speech engine found")

// LocalVoice describes one voice offered by the host speech engine.
type LocalVoice struct {
	Name     string
	Language string
}

// LocalEngine is the last-resort synthesizer: it shells out to the host
// platform's speech command and captures the rendered audio.
type LocalEngine struct {
	// Command overrides engine discovery when set (e.g. "espeak-ng").
	Command string

	// LookPath is swappable for tests; defaults to exec.LookPath.
	LookPath func(string) (string, error)

	// Run is swappable for tests; defaults to running the command.
	Run func(ctx context.Context, name string, args ...string) ([]byte, error)

	mu         sync.Mutex
	voiceCache map[string]string
}

// NewLocalEngine returns an engine that discovers the platform speech
// command on first use.
func NewLocalEngine(command string) *LocalEngine {
	return &LocalEngine{Command: command}
}

// Synthesize renders text to a wav payload with the host engine. The voice
// argument is advisory; if the engine does not offer it, a deterministic
// English voice is chosen instead.
func (e *LocalEngine) Synthesize(ctx context.Context, text, voice string) (*Audio, error) {
	command, err := e.resolveCommand()
	if err != nil {
		return nil, err
	}

	outDir, err := os.MkdirTemp("", "fleetdeck-tts-")
	if err != nil {
		return nil, fmt.Errorf("create tts temp dir: %w", err)
	}
	defer os.RemoveAll(outDir)
	outPath := filepath.Join(outDir, "line.wav")

	args := e.synthesisArgs(command, text, e.localVoice(ctx, voice), outPath)
	if _, err := e.run(ctx, command, args...); err != nil {
		return nil, fmt.Errorf("local synthesis (%s): %w", filepath.Base(command), err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read synthesized audio: %w", err)
	}

	return &Audio{
		Text:   text,
		Voice:  voice,
		Data:   data,
		Format: "wav",
		Source: "local",
	}, nil
}

// localVoice maps a service voice id onto one the host engine offers. The
// remote catalogue and the engine rarely share ids, so an id the engine
// does not list substitutes the SelectVoice pick. The mapping is memoized
// so repeated lines do not re-query the engine.
func (e *LocalEngine) localVoice(ctx context.Context, voice string) string {
	e.mu.Lock()
	if mapped, ok := e.voiceCache[voice]; ok {
		e.mu.Unlock()
		return mapped
	}
	e.mu.Unlock()

	mapped := voice
	voices, err := e.Voices(ctx)
	if err == nil && len(voices) > 0 {
		offered := false
		for _, v := range voices {
			if strings.EqualFold(v.Name, voice) {
				mapped = v.Name
				offered = true
				break
			}
		}
		if !offered {
			mapped = SelectVoice(voices)
		}
	}

	e.mu.Lock()
	if e.voiceCache == nil {
		e.voiceCache = make(map[string]string)
	}
	e.voiceCache[voice] = mapped
	e.mu.Unlock()
	return mapped
}

// Voices lists voices the host engine offers. Only espeak-style engines are
// queried; for others an empty list is returned and selection falls back to
// the engine default.
func (e *LocalEngine) Voices(ctx context.Context) ([]LocalVoice, error) {
	command, err := e.resolveCommand()
	if err != nil {
		return nil, err
	}
	base := filepath.Base(command)
	if !strings.HasPrefix(base, "espeak") {
		return nil, nil
	}

	out, err := e.run(ctx, command, "--voices=en")
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	return parseEspeakVoices(string(out)), nil
}

// SelectVoice applies the deterministic fallback heuristic: prefer a voice
// whose name marks it as natural or enhanced English, else the first English
// voice, else empty (engine default).
func SelectVoice(voices []LocalVoice) string {
	for _, v := range voices {
		if !isEnglish(v) {
			continue
		}
		name := strings.ToLower(v.Name)
		if strings.Contains(name, "natural") || strings.Contains(name, "enhanced") {
			return v.Name
		}
	}
	for _, v := range voices {
		if isEnglish(v) {
			return v.Name
		}
	}
	return ""
}

func isEnglish(v LocalVoice) bool {
	return strings.HasPrefix(strings.ToLower(v.Language), "en")
}

func (e *LocalEngine) resolveCommand() (string, error) {
	lookPath := e.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	candidates := []string{}
	if strings.TrimSpace(e.Command) != "" {
		candidates = append(candidates, e.Command)
	} else if runtime.GOOS == "darwin" {
		candidates = append(candidates, "say", "espeak-ng", "espeak")
	} else {
		candidates = append(candidates, "espeak-ng", "espeak")
	}

	for _, candidate := range candidates {
		if path, err := lookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", ErrNoLocalEngine
}

func (e *LocalEngine) synthesisArgs(command, text, voice, outPath string) []string {
	if filepath.Base(command) == "say" {
		args := []string{"-o", outPath, "--data-format=LEI16@22050"}
		if voice != "" {
			args = append(args, "-v", voice)
		}
		return append(args, text)
	}

	args := []string{"-w", outPath}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	return append(args, text)
}

func (e *LocalEngine) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if e.Run != nil {
		return e.Run(ctx, name, args...)
	}
	return exec.CommandContext(ctx, name, args...).Output()
}

func parseEspeakVoices(out string) []LocalVoice {
	lines := strings.Split(out, "\n")
	voices := make([]LocalVoice, 0, len(lines))
	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue // header
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		voices = append(voices, LocalVoice{
			Name:     fields[3],
			Language: fields[1],
		})
	}
	return voices
}
