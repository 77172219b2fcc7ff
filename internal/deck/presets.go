package deck

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PresetFile is the top-level YAML structure of a presets file.
type PresetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Presets maps preset name to preset.
type Presets map[string]Preset

// ParsePresets decodes presets YAML.
func ParsePresets(data []byte) (Presets, error) {
	var f PresetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse presets YAML: %w", err)
	}
	out := make(Presets, len(f.Presets))
	for i, p := range f.Presets {
		if p.Name == "" {
			return nil, fmt.Errorf("preset %d: name is required", i)
		}
		if _, exists := out[p.Name]; exists {
			return nil, fmt.Errorf("preset %s: duplicate name", p.Name)
		}
		out[p.Name] = p
	}
	return out, nil
}

// LoadPresets reads a presets file.
func LoadPresets(path string) (Presets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePresets(data)
}
