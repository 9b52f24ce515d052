// Package registry maintains the set of known signal names: a default
// example registry, a YAML file representation, and a Redis-backed cache
// shared between agents.
package registry

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultSignals is the example registry for a WFR battery/powertrain car
var DefaultSignals = []string{
	"PackCurrent",            // primary heat source
	"M1_Thermistor1",         // module 1 temperature
	"M3_Thermistor1",         // module 3 temperature (middle)
	"M5_Thermistor1",         // module 5 temperature
	"SOC",                    // state of charge
	"INV_Motor_Speed",        // motion context
	"VCU_INV_Torque_Command", // load context
	"Throttle",               // driver input (if available)
	"Brake_Percent",          // driver input (if available)
}

// File is the on-disk YAML representation of the registry
type File struct {
	Signals []string `yaml:"signals"`
}

// LoadFile reads a signal registry from a YAML file
func LoadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse registry file %s: %w", path, err)
	}
	return f.Signals, nil
}

// SaveFile writes a signal registry to a YAML file, sorted for stable diffs
func SaveFile(path string, signals []string) error {
	sorted := append([]string(nil), signals...)
	sort.Strings(sorted)

	data, err := yaml.Marshal(File{Signals: sorted})
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry file %s: %w", path, err)
	}
	return nil
}

// Union merges signal name lists into one sorted, deduplicated list
func Union(lists ...[]string) []string {
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, name := range list {
			if name != "" {
				seen[name] = struct{}{}
			}
		}
	}
	merged := make([]string, 0, len(seen))
	for name := range seen {
		merged = append(merged, name)
	}
	sort.Strings(merged)
	return merged
}
