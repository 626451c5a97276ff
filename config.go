package termgraph

import (
	"fmt"

	"github.com/abekenov/termgraph/terminology"
)

// Config holds all configuration for the processing pipeline.
type Config struct {
	// Vocabulary file paths. Empty paths use the embedded defaults.
	TermsPath      string `json:"terms_path" yaml:"terms_path"`
	ForbiddenPath  string `json:"forbidden_path" yaml:"forbidden_path"`
	CategoriesPath string `json:"categories_path" yaml:"categories_path"`

	// ValidationMode selects the gating policy: smart, soft, strict, off.
	ValidationMode string `json:"validation_mode" yaml:"validation_mode"`

	// MinDensity overrides the mode's density floor when positive.
	MinDensity float64 `json:"min_density" yaml:"min_density"`

	// Chain extraction bounds.
	MinStages int `json:"min_stages" yaml:"min_stages"`
	MaxStages int `json:"max_stages" yaml:"max_stages"`

	// ExpectedRoot pins hierarchy extraction to one root concept.
	// Empty accepts any allowed root.
	ExpectedRoot string `json:"expected_root" yaml:"expected_root"`

	// DBPath is the SQLite database file for graph persistence.
	DBPath string `json:"db_path" yaml:"db_path"`

	// BlockWords is the approximate word budget per ingested block.
	BlockWords int `json:"block_words" yaml:"block_words"`
}

// DefaultConfig returns a Config with the standard gating policy.
func DefaultConfig() Config {
	return Config{
		ValidationMode: terminology.ModeSmart,
		MinStages:      2,
		MaxStages:      10,
		BlockWords:     400,
	}
}

// Validate checks the configuration for contradictions.
func (c Config) Validate() error {
	switch c.ValidationMode {
	case terminology.ModeSmart, terminology.ModeSoft, terminology.ModeStrict, terminology.ModeOff:
	default:
		return fmt.Errorf("%w: unknown validation mode %q", ErrInvalidConfig, c.ValidationMode)
	}
	if c.MinDensity < 0 || c.MinDensity > 1 {
		return fmt.Errorf("%w: min density %.3f outside [0,1]", ErrInvalidConfig, c.MinDensity)
	}
	if c.MinStages < 0 || c.MaxStages < 0 || (c.MaxStages > 0 && c.MinStages > c.MaxStages) {
		return fmt.Errorf("%w: stage bounds %d..%d", ErrInvalidConfig, c.MinStages, c.MaxStages)
	}
	if c.BlockWords < 0 {
		return fmt.Errorf("%w: block words %d", ErrInvalidConfig, c.BlockWords)
	}
	return nil
}
