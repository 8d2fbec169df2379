package application

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProjectManifest is the optional ember.yaml alternative to repeating CLI
// flags: an entry file list plus the same target/optimization knobs the
// CLI exposes. CLI flags always win when both are present — the manifest
// only fills in what the flags left at their zero value.
type ProjectManifest struct {
	Files             []string `yaml:"files"`
	Target            string   `yaml:"target"`
	OptimizationLevel int      `yaml:"optimization_level"`
	DebugInfo         bool     `yaml:"debug_info"`
	WarningsAsErrors  bool     `yaml:"warnings_as_errors"`
}

// LoadManifest reads and parses an ember.yaml project manifest.
func LoadManifest(path string) (*ProjectManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	var m ProjectManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if len(m.Files) == 0 {
		return nil, fmt.Errorf("manifest %s declares no files", path)
	}
	return &m, nil
}
