package tour

import (
	"os"
	"path/filepath"
)

// SearchPaths returns tour definition directories in precedence order.
func SearchPaths(projectDir string) []string {
	paths := make([]string, 0, 2)
	if projectDir != "" {
		paths = append(paths, filepath.Join(projectDir, ".fleetdeck", "tours"))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".config", "fleetdeck", "tours"))
	}
	return paths
}

// LoadDefinitions loads tours from the search paths plus the builtins, with
// first-hit precedence by name.
func LoadDefinitions(projectDir string) ([]*Definition, error) {
	seen := make(map[string]*Definition)
	order := make([]string, 0)

	for _, path := range SearchPaths(projectDir) {
		defs, err := LoadDefinitionsFromDir(path)
		if err != nil {
			return nil, err
		}
		for _, def := range defs {
			if _, exists := seen[def.Name]; exists {
				continue
			}
			seen[def.Name] = def
			order = append(order, def.Name)
		}
	}

	builtins, err := LoadBuiltinDefinitions()
	if err != nil {
		return nil, err
	}
	for _, def := range builtins {
		if _, exists := seen[def.Name]; exists {
			continue
		}
		seen[def.Name] = def
		order = append(order, def.Name)
	}

	resolved := make([]*Definition, 0, len(order))
	for _, name := range order {
		resolved = append(resolved, seen[name])
	}
	return resolved, nil
}
