package engine

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/roach88/refgraph/internal/model"
	"github.com/roach88/refgraph/internal/store"
)

var errInjected = errors.New("injected failure")

type backendFactory func(t *testing.T) *store.Store

func memoryBackend(t *testing.T) *store.Store {
	return store.NewMemory(store.WithIDGenerator(store.NewSequenceGenerator()))
}

func sqliteBackend(t *testing.T) *store.Store {
	s, err := store.Open(store.MemoryPath, store.WithIDGenerator(store.NewSequenceGenerator()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// forEachBackend runs fn against an engine over each store backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, e *Engine), opts ...EngineOption) {
	backends := map[string]backendFactory{
		"Memory": memoryBackend,
		"SQLite": sqliteBackend,
	}
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			fn(t, newTestEngine(t, factory(t), opts...))
		})
	}
}

func newTestEngine(t *testing.T, s *store.Store, opts ...EngineOption) *Engine {
	t.Helper()
	base := []EngineOption{
		WithLogger(slog.New(slog.DiscardHandler)),
		WithRequestIDs(NewSequentialGenerator("req")),
	}
	return New(s, append(base, opts...)...)
}

func newMemoryEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	return newTestEngine(t, memoryBackend(t), opts...)
}

func newMeteredEngine(t *testing.T, opts ...EngineOption) (*Engine, *Metrics) {
	t.Helper()
	m := NewMetrics(prometheus.NewRegistry())
	return newMemoryEngine(t, append(opts, WithMetrics(m))...), m
}

func mustAccount(t *testing.T, e *Engine, first string) *model.Account {
	t.Helper()
	a, err := e.CreateAccount(context.Background(), model.AccountInput{
		FirstName: first,
		LastName:  "Test",
		Email:     first + "@example.com",
	})
	require.NoError(t, err)
	return a
}

func mustPost(t *testing.T, e *Engine, owner, title string) *model.Post {
	t.Helper()
	p, err := e.CreatePost(context.Background(), model.PostInput{Title: title, Content: "content", UserID: owner})
	require.NoError(t, err)
	return p
}

func profileInput(owner string) model.ProfileInput {
	return model.ProfileInput{
		Avatar:       "avatar.png",
		Sex:          "x",
		Birthday:     946684800,
		Country:      "NZ",
		Street:       "1 Queen St",
		City:         "Auckland",
		MemberTypeID: "basic",
		UserID:       owner,
	}
}

func mustProfile(t *testing.T, e *Engine, owner string) *model.Profile {
	t.Helper()
	p, err := e.CreateProfile(context.Background(), profileInput(owner))
	require.NoError(t, err)
	return p
}

func mustSubscribe(t *testing.T, e *Engine, subscriber, followed string) {
	t.Helper()
	_, err := e.Subscribe(context.Background(), subscriber, followed)
	require.NoError(t, err)
}

func subscriptionsOf(t *testing.T, e *Engine, id string) []string {
	t.Helper()
	a, err := e.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return a.SubscribedToUserIDs
}

// failingPosts fails Delete for one id and passes everything else through.
type failingPosts struct {
	store.Collection[*model.Post]
	failID string
}

func (f failingPosts) Delete(ctx context.Context, id string) (*model.Post, bool, error) {
	if id == f.failID {
		return nil, false, errInjected
	}
	return f.Collection.Delete(ctx, id)
}

// failingAccountUpdates fails Update for one id.
type failingAccountUpdates struct {
	store.Collection[*model.Account]
	failID string
}

func (f failingAccountUpdates) Update(ctx context.Context, id string, patch model.Patch[*model.Account]) (*model.Account, bool, error) {
	if id == f.failID {
		return nil, false, errInjected
	}
	return f.Collection.Update(ctx, id, patch)
}

// failingJournal rejects every append.
type failingJournal struct {
	store.Journal
}

func (failingJournal) Append(context.Context, model.JournalEntry) (model.JournalEntry, error) {
	return model.JournalEntry{}, errInjected
}

// vanishingAccounts removes the record on Delete but reports it as already
// gone, as if another writer deleted it first.
type vanishingAccounts struct {
	store.Collection[*model.Account]
}

func (v vanishingAccounts) Delete(ctx context.Context, id string) (*model.Account, bool, error) {
	if _, _, err := v.Collection.Delete(ctx, id); err != nil {
		return nil, false, err
	}
	return nil, false, nil
}

// failingAccountDeletes fails every Delete.
type failingAccountDeletes struct {
	store.Collection[*model.Account]
}

func (failingAccountDeletes) Delete(context.Context, string) (*model.Account, bool, error) {
	return nil, false, errInjected
}

// cancelingPosts cancels the caller's context after the first Delete and
// rejects any call made under a cancelled context.
type cancelingPosts struct {
	store.Collection[*model.Post]
	cancel context.CancelFunc
}

func (c cancelingPosts) Delete(ctx context.Context, id string) (*model.Post, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	defer c.cancel()
	return c.Collection.Delete(ctx, id)
}
