package tour

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/opentelematics/fleetdeck/internal/stage"
)

// ChatObserver exposes the chat state completion predicates poll.
type ChatObserver interface {
	// AwaitingReply reports whether a submitted query is still waiting
	// for its response to land in the transcript.
	AwaitingReply() bool
}

// Binder resolves the named actions and predicates of a declarative tour
// definition against live collaborators.
type Binder struct {
	Actions stage.Actions
	Chat    ChatObserver

	// DefaultVoice and DefaultUserVoice fill in definitions that don't
	// name their own voices.
	DefaultVoice     string
	DefaultUserVoice string
}

// Bind turns a definition into a runnable registry.
func (b *Binder) Bind(def *Definition) (*Registry, error) {
	if def == nil {
		return nil, fmt.Errorf("tour definition is nil")
	}

	actions := b.Actions
	if actions == nil {
		actions = stage.NopActions{}
	}

	registry := &Registry{
		Name:        def.Name,
		Description: def.Description,
		Voice:       firstNonEmpty(def.Voice, b.DefaultVoice, "aria"),
		UserVoice:   firstNonEmpty(def.UserVoice, b.DefaultUserVoice, "guy"),
		Steps:       make([]Step, 0, len(def.Steps)),
	}

	for i, sd := range def.Steps {
		step := Step{
			Label:           sd.Label,
			Narration:       sd.Narration,
			VoiceQuery:      sd.VoiceQuery,
			ResultNarration: sd.ResultNarration,
		}

		// Durations were validated at load time.
		step.WaitTimeout, _ = parseOptionalDuration(sd.WaitTimeout)
		step.PauseAfter, _ = parseOptionalDuration(sd.PauseAfter)

		if sd.Action != "" {
			action, err := bindAction(actions, sd.Action)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
			step.Action = action
		}

		if sd.WaitFor != "" {
			predicate, err := b.bindPredicate(sd.WaitFor)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
			step.WaitFor = predicate
		}

		registry.Steps = append(registry.Steps, step)
	}

	if err := registry.Validate(); err != nil {
		return nil, err
	}
	return registry, nil
}

// bindAction maps an "op [arg]" spec to a surface operation.
func bindAction(actions stage.Actions, spec string) (func(), error) {
	op, arg := splitSpec(spec)

	switch op {
	case "fit_all_markers":
		return actions.FitAllMarkers, nil
	case "select_vehicle":
		if arg == "" {
			return nil, fmt.Errorf("select_vehicle requires a vehicle id")
		}
		return func() { actions.SelectVehicle(arg) }, nil
	case "open_panel":
		if arg == "" {
			return nil, fmt.Errorf("open_panel requires a panel name")
		}
		return func() { actions.OpenPanel(arg) }, nil
	case "close_panel":
		if arg == "" {
			return nil, fmt.Errorf("close_panel requires a panel name")
		}
		return func() { actions.ClosePanel(arg) }, nil
	case "isolate":
		on := arg == "on" || arg == "true"
		return func() { actions.ToggleIsolation(on) }, nil
	case "start_replay":
		if arg == "" {
			return nil, fmt.Errorf("start_replay requires a trip id")
		}
		return func() { actions.StartReplay(arg) }, nil
	case "pause_replay":
		return actions.PauseReplay, nil
	case "seek_replay":
		fraction, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("seek_replay requires a fraction: %w", err)
		}
		return func() { actions.SeekReplay(fraction) }, nil
	case "theme":
		if arg == "" {
			return nil, fmt.Errorf("theme requires a theme name")
		}
		return func() { actions.ToggleTheme(arg) }, nil
	case "restore_layout":
		return actions.RestoreLayout, nil
	default:
		return nil, fmt.Errorf("unknown action %q", op)
	}
}

// bindPredicate maps a predicate name to a poller.
func (b *Binder) bindPredicate(name string) (func() bool, error) {
	switch name {
	case "chat_response":
		chat := b.Chat
		if chat == nil {
			return nil, fmt.Errorf("wait_for chat_response requires a chat client")
		}
		return func() bool { return !chat.AwaitingReply() }, nil
	default:
		return nil, fmt.Errorf("unknown wait_for %q", name)
	}
}

func splitSpec(spec string) (op, arg string) {
	parts := strings.SplitN(strings.TrimSpace(spec), " ", 2)
	op = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		arg = strings.TrimSpace(parts[1])
	}
	return op, arg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
