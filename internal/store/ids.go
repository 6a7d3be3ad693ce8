package store

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/refgraph/internal/model"
)

// IDGenerator assigns identities to new records.
// Implemented by UUIDv7Generator (production) and SequenceGenerator (tests).
type IDGenerator interface {
	NewID(kind model.Kind) string
}

// UUIDv7Generator generates time-sortable UUIDv7 ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// NewID returns a new hyphenated UUIDv7. The kind is ignored.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) NewID(model.Kind) string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator returns "<kind>-<n>" ids with an independent counter per
// kind, starting at 1. Deterministic ids keep golden snapshots stable.
//
// Thread-safety: SequenceGenerator is safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu   sync.Mutex
	next map[model.Kind]int64
}

// NewSequenceGenerator creates a generator with all counters at zero.
func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{next: make(map[model.Kind]int64)}
}

// NewID returns the next id for kind.
func (g *SequenceGenerator) NewID(kind model.Kind) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next[kind]++
	return fmt.Sprintf("%s-%d", kind, g.next[kind])
}
