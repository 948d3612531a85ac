// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDifficulty is the difficulty of the genesis block when the
// genesis file doesn't provide one.
const DefaultDifficulty = 3

// Genesis represents the genesis file.
type Genesis struct {
	Date       time.Time `json:"date" yaml:"date"`             // Genesis block time, zero means node start time.
	Difficulty *uint     `json:"difficulty" yaml:"difficulty"` // Starting difficulty of the chain.
}

// Default returns the genesis information used when no file is provided.
func Default() Genesis {
	d := uint(DefaultDifficulty)
	return Genesis{Difficulty: &d}
}

// InitialDifficulty returns the starting difficulty of the chain.
func (g Genesis) InitialDifficulty() uint {
	if g.Difficulty == nil {
		return DefaultDifficulty
	}
	return *g.Difficulty
}

// =============================================================================

// Load opens and consumes the genesis file. Files ending in .yaml or .yml are
// decoded as YAML, anything else as JSON. An empty path returns the default.
func Load(path string) (Genesis, error) {
	if path == "" {
		return Default(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &genesis)
	default:
		err = json.Unmarshal(content, &genesis)
	}
	if err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis %s: %w", path, err)
	}

	return genesis, nil
}
