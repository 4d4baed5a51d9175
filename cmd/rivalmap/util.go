package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// loadContextFile reads a YAML mapping used to seed the session's user
// context, e.g. user_id, role, preferences.
func loadContextFile(path string) (map[string]interface{}, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading context file: %w", err)
	}
	var out map[string]interface{}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parsing context file: %w", err)
	}
	if out == nil {
		out = map[string]interface{}{}
	}
	return out, nil
}
