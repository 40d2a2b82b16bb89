// Package config loads the optional mapping-overrides file. The file
// extends the built-in function and visual tables without rebuilding the
// binary: extra expression functions under dax:, extra script functions
// under mquery:, and visual type overrides under visuals:.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Mappings holds user-supplied conversion overrides.
type Mappings struct {
	DAX     map[string]string `yaml:"dax"`
	MQuery  map[string]string `yaml:"mquery"`
	Visuals map[string]string `yaml:"visuals"`
}

// LoadMappings reads and validates a mapping-overrides file. Unknown
// top-level keys are rejected so typos surface instead of being silently
// ignored.
func LoadMappings(path string) (*Mappings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mappings file: %w", err)
	}
	m, err := parseMappings(data)
	if err != nil {
		return nil, fmt.Errorf("invalid mappings file %s: %w", path, err)
	}
	return m, nil
}

func parseMappings(data []byte) (*Mappings, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &MappingsParseError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}

	knownSections := map[string]bool{
		"dax":     true,
		"mquery":  true,
		"visuals": true,
	}
	for section := range raw {
		if !knownSections[section] {
			return nil, &UnknownSectionError{Section: section}
		}
	}

	var m Mappings
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &MappingsParseError{Message: fmt.Sprintf("failed to parse mappings: %v", err)}
	}

	for section, entries := range map[string]map[string]string{
		"dax": m.DAX, "mquery": m.MQuery, "visuals": m.Visuals,
	} {
		for name, target := range entries {
			if name == "" || target == "" {
				return nil, &MappingsParseError{
					Message: fmt.Sprintf("%s: mapping entries need a non-empty name and target (found %q: %q)", section, name, target),
				}
			}
		}
	}
	return &m, nil
}

// MappingsParseError represents a mappings file parsing error.
type MappingsParseError struct {
	Message string
}

func (e *MappingsParseError) Error() string {
	return e.Message
}

// UnknownSectionError indicates an unrecognized top-level key in the
// mappings file.
type UnknownSectionError struct {
	Section string
}

func (e *UnknownSectionError) Error() string {
	return fmt.Sprintf("unknown section %q, must be one of: dax, mquery, visuals", e.Section)
}
