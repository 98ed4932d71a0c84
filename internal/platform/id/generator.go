package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Generator creates run identifiers for the sync log.
type Generator interface {
	NewID() (string, error)
}

// RunIDGenerator produces "<prefix>-<uuidv7>" ids so ids sort by creation time.
type RunIDGenerator struct {
	prefix string
}

func NewRunIDGenerator(prefix string) *RunIDGenerator {
	return &RunIDGenerator{prefix: strings.TrimSpace(prefix)}
}

func (g *RunIDGenerator) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	if g == nil || g.prefix == "" {
		return value.String(), nil
	}
	return g.prefix + "-" + value.String(), nil
}

// Static always returns the same id. Used by tests and dry runs.
type Static string

func (s Static) NewID() (string, error) {
	return string(s), nil
}
