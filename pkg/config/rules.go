package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules are the lookup tables that change with numbering plans and site markup.
type Rules struct {
	PhonePrefixes     []string `yaml:"phone_prefixes"`
	HiddenMarkers     []string `yaml:"hidden_markers"`
	RegistrationOrder []string `yaml:"registration_order"`
}

// LoadRules reads a YAML rules file. An empty path yields empty rules so callers
// fall back to their built-in tables.
func LoadRules(path string) (Rules, error) {
	var rules Rules
	if path == "" {
		return rules, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read rules file: %w", err)
	}
	if err := yaml.Unmarshal(b, &rules); err != nil {
		return rules, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return rules, nil
}
