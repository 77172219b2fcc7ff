package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the top-level YAML structure of a catalog file.
type File struct {
	Cards []Card `yaml:"cards"`
}

// ParseFile decodes catalog YAML.
func ParseFile(data []byte) ([]Card, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog YAML: %w", err)
	}
	return f.Cards, nil
}

// LoadFile reads and decodes a catalog file.
func LoadFile(path string) ([]Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFile(data)
}

// LoadRegistry reads path and builds a Registry from it.
func LoadRegistry(path string) (*Registry, error) {
	cards, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewRegistry(cards)
}
