package termgraph

import "errors"

var (
	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("termgraph: invalid configuration")

	// ErrEmptyCorpus is returned when corpus processing receives no blocks.
	ErrEmptyCorpus = errors.New("termgraph: empty corpus")
)
