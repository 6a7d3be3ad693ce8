package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// RequestIDGenerator generates ids that correlate a mutation with its
// journal entry. Implemented by UUIDv7Generator (production) and
// SequentialGenerator (tests and golden snapshots).
type RequestIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 request ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequentialGenerator returns "<prefix>-1", "<prefix>-2", ... from a
// monotonic counter.
//
// Thread-safety: safe for concurrent use (atomic counter).
type SequentialGenerator struct {
	prefix string
	seq    atomic.Int64
}

// NewSequentialGenerator creates a generator starting at 1.
//
// Example:
//
//	gen := NewSequentialGenerator("req")
//	gen.Generate() // "req-1"
//	gen.Generate() // "req-2"
func NewSequentialGenerator(prefix string) *SequentialGenerator {
	return &SequentialGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialGenerator) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.seq.Add(1))
}
