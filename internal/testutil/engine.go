// Package testutil builds deterministic engines for scenario runs and CLI
// tests.
package testutil

import (
	"log/slog"

	"github.com/roach88/refgraph/internal/engine"
	"github.com/roach88/refgraph/internal/store"
)

// FixedRequestIDs returns the same request id every time.
//
// Useful when every journal entry of a run should carry one correlation id.
//
// Thread-safety: FixedRequestIDs is stateless and safe for concurrent use.
type FixedRequestIDs struct {
	id string
}

// NewFixedRequestIDs creates a fixed request id generator.
// If id is empty, Generate returns "req-fixed".
func NewFixedRequestIDs(id string) *FixedRequestIDs {
	if id == "" {
		id = "req-fixed"
	}
	return &FixedRequestIDs{id: id}
}

// Generate implements engine.RequestIDGenerator.
func (g *FixedRequestIDs) Generate() string {
	return g.id
}

// NewStore returns a fresh in-memory store with per-kind sequence ids
// ("account-1", "post-1"), seeded with the default member types.
func NewStore() *store.Store {
	return store.NewMemory(store.WithIDGenerator(store.NewSequenceGenerator()))
}

// NewEngine returns an engine over NewStore with sequential request ids
// ("req-1", "req-2") and a discarding logger. opts are applied last and may
// override any of these.
func NewEngine(opts ...engine.EngineOption) *engine.Engine {
	base := []engine.EngineOption{
		engine.WithLogger(slog.New(slog.DiscardHandler)),
		engine.WithRequestIDs(engine.NewSequentialGenerator("req")),
	}
	return engine.New(NewStore(), append(base, opts...)...)
}
