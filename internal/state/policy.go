package state

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cast"
)

const (
	Enabled  = "enabled"
	Disabled = "disabled"
)

// BuiltinDefault is the state applied to accounts which never requested one.
func BuiltinDefault() Desired {
	return Desired{
		"insights":      Enabled,
		"compliance":    Enabled,
		"vulnerability": Disabled,
		"drift":         Enabled,
	}
}

// LoadDefault reads a flat capability map from a YAML file.
//
// An empty path returns the built-in default.
func LoadDefault(path string) (Desired, error) {
	if path == "" {
		return BuiltinDefault(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read default state: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse default state '%s': %w", path, err)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("default state '%s' is empty", path)
	}

	return FromMap(raw)
}

// FromMap converts a decoded document into a Desired state.
//
// Values are coerced to strings: booleans become "true"/"false", numbers their decimal form.
// Null and nested values are rejected.
func FromMap(raw map[string]any) (Desired, error) {
	out := make(Desired, len(raw))
	for capability, value := range raw {
		if value == nil {
			return nil, fmt.Errorf("invalid value for '%s': %w", capability, ErrNullValue)
		}
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for '%s': %w", capability, err)
		}
		out[capability] = s
	}
	return out, nil
}
