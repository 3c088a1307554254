package tour

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Definition is the declarative on-disk form of a tour.
type Definition struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Voice       string    `yaml:"voice,omitempty"`
	UserVoice   string    `yaml:"user_voice,omitempty"`
	Steps       []StepDef `yaml:"steps"`
	Source      string    // file path or "builtin"
}

// StepDef is a single declarative step. Action and WaitFor are names bound
// at load time to surface operations and completion predicates.
type StepDef struct {
	Label           string `yaml:"label,omitempty"`
	Narration       string `yaml:"narration,omitempty"`
	Action          string `yaml:"action,omitempty"`
	VoiceQuery      string `yaml:"voice_query,omitempty"`
	WaitFor         string `yaml:"wait_for,omitempty"`
	WaitTimeout     string `yaml:"wait_timeout,omitempty"`
	ResultNarration string `yaml:"result_narration,omitempty"`
	PauseAfter      string `yaml:"pause_after,omitempty"`
}

// LoadDefinition reads a single tour definition from disk.
func LoadDefinition(path string) (*Definition, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("tour path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tour %s: %w", path, err)
	}

	def, err := parseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("parse tour %s: %w", path, err)
	}
	def.Source = path
	return def, nil
}

// LoadDefinitionsFromDir loads all tour definitions from a directory.
func LoadDefinitionsFromDir(dir string) ([]*Definition, error) {
	if strings.TrimSpace(dir) == "" {
		return []*Definition{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Definition{}, nil
		}
		return nil, fmt.Errorf("read tours dir %s: %w", dir, err)
	}

	defs := make([]*Definition, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		def, err := LoadDefinition(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})
	return defs, nil
}

func parseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, err
	}

	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return nil, fmt.Errorf("tour name is required")
	}
	def.Description = strings.TrimSpace(def.Description)
	def.Voice = strings.TrimSpace(def.Voice)
	def.UserVoice = strings.TrimSpace(def.UserVoice)

	if len(def.Steps) == 0 {
		return nil, fmt.Errorf("tour steps are required")
	}

	for i := range def.Steps {
		if err := normalizeStepDef(&def.Steps[i]); err != nil {
			return nil, fmt.Errorf("tour step %d: %w", i+1, err)
		}
	}
	return &def, nil
}

func normalizeStepDef(step *StepDef) error {
	step.Label = strings.TrimSpace(step.Label)
	step.Narration = strings.TrimSpace(step.Narration)
	step.Action = strings.TrimSpace(step.Action)
	step.VoiceQuery = strings.TrimSpace(step.VoiceQuery)
	step.WaitFor = strings.TrimSpace(step.WaitFor)
	step.ResultNarration = strings.TrimSpace(step.ResultNarration)

	if step.WaitFor != "" && step.VoiceQuery != "" {
		return ErrConflictingAdvancement
	}

	if step.Narration == "" && step.Action == "" && step.VoiceQuery == "" && step.WaitFor == "" {
		return fmt.Errorf("step is empty")
	}

	if _, err := parseOptionalDuration(step.WaitTimeout); err != nil {
		return fmt.Errorf("invalid wait_timeout: %w", err)
	}
	if _, err := parseOptionalDuration(step.PauseAfter); err != nil {
		return fmt.Errorf("invalid pause_after: %w", err)
	}
	return nil
}

func parseOptionalDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative")
	}
	return d, nil
}
