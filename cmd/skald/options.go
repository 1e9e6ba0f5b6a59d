package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"skald/internal/config"
)

// buildOptionsJSON merges an optional YAML options file with --set
// overrides into the JSON object the daemon expects. Overrides win over
// file values; scalar override values are coerced to bool or number when
// they parse as one.
func buildOptionsJSON(optionsFile string, sets []string) (json.RawMessage, error) {
	options := map[string]any{}

	if path := strings.TrimSpace(optionsFile); path != "" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(expanded)
		if err != nil {
			return nil, fmt.Errorf("read options file: %w", err)
		}
		if err := yaml.Unmarshal(data, &options); err != nil {
			return nil, fmt.Errorf("parse options file %s: %w", expanded, err)
		}
		if options == nil {
			options = map[string]any{}
		}
	}

	for _, entry := range sets {
		key, value, err := parseSetFlag(entry)
		if err != nil {
			return nil, err
		}
		options[key] = value
	}

	if len(options) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("encode options: %w", err)
	}
	return data, nil
}

func parseSetFlag(entry string) (string, any, error) {
	key, raw, found := strings.Cut(entry, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" {
		return "", nil, fmt.Errorf("invalid --set %q (expected key=value)", entry)
	}
	return key, coerceScalar(strings.TrimSpace(raw)), nil
}

// coerceScalar keeps option values typed the way the stage handlers
// decode them: bools and numbers stay bools and numbers, everything else
// passes through as a string.
func coerceScalar(raw string) any {
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
