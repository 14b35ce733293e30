//go:build !tinygo

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML board file over the defaults. A missing file yields
// the defaults. The result is validated.
func Load(filename string) (*Board, error) {
	b := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return b, nil
		}
		return nil, fmt.Errorf("failed to read board file: %w", err)
	}

	if err := yaml.Unmarshal(data, b); err != nil {
		return nil, fmt.Errorf("failed to parse board file: %w", err)
	}

	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("board file %s: %w", filename, err)
	}
	return b, nil
}

// Save writes the board as YAML
func (b *Board) Save(filename string) error {
	data, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal board: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write board file: %w", err)
	}
	return nil
}
