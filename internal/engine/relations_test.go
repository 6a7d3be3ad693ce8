package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelations_SubscribeUnsubscribeInverse(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		a := mustAccount(t, e, "a")
		b := mustAccount(t, e, "b")
		c := mustAccount(t, e, "c")
		mustSubscribe(t, e, a.ID, c.ID)

		before := subscriptionsOf(t, e, a.ID)

		updated, err := e.Subscribe(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{c.ID, b.ID}, updated.SubscribedToUserIDs)

		subscribed, err := e.IsSubscribed(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.True(t, subscribed)

		updated, err = e.Unsubscribe(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, before, updated.SubscribedToUserIDs)
		assert.Equal(t, before, subscriptionsOf(t, e, a.ID))
	})
}

func TestRelations_DirectionIsSubscriberToFollowed(t *testing.T) {
	e := newMemoryEngine(t)
	a := mustAccount(t, e, "a")
	b := mustAccount(t, e, "b")

	mustSubscribe(t, e, a.ID, b.ID)

	assert.Equal(t, []string{b.ID}, subscriptionsOf(t, e, a.ID))
	assert.Empty(t, subscriptionsOf(t, e, b.ID))
}

func TestRelations_InvalidReferenceRejected(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		a := mustAccount(t, e, "a")

		_, err := e.Subscribe(ctx, a.ID, "account-404")
		require.Error(t, err)
		assert.True(t, IsInvalidReference(err))
		assert.Empty(t, subscriptionsOf(t, e, a.ID), "no mutation on invalid reference")

		_, err = e.Subscribe(ctx, "account-404", a.ID)
		assert.True(t, IsInvalidReference(err))

		_, err = e.Unsubscribe(ctx, a.ID, "account-404")
		assert.True(t, IsInvalidReference(err))
	})
}

func TestRelations_UnsubscribeWithoutEdge(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		a := mustAccount(t, e, "a")
		b := mustAccount(t, e, "b")
		c := mustAccount(t, e, "c")
		mustSubscribe(t, e, a.ID, c.ID)

		_, err := e.Unsubscribe(ctx, a.ID, b.ID)
		require.Error(t, err)
		assert.True(t, IsEdgeNotFound(err))
		assert.Equal(t, []string{c.ID}, subscriptionsOf(t, e, a.ID))
	})
}

func TestRelations_SelfSubscriptionPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("rejected by default", func(t *testing.T) {
		e := newMemoryEngine(t)
		a := mustAccount(t, e, "a")

		_, err := e.Subscribe(ctx, a.ID, a.ID)
		assert.True(t, IsInvalidReference(err))
		assert.Empty(t, subscriptionsOf(t, e, a.ID))
	})

	t.Run("allowed by option", func(t *testing.T) {
		e := newMemoryEngine(t, WithSelfSubscription(true))
		a := mustAccount(t, e, "a")

		updated, err := e.Subscribe(ctx, a.ID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{a.ID}, updated.SubscribedToUserIDs)
	})
}

func TestRelations_DuplicateSubscribePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("deduplicated by default", func(t *testing.T) {
		e := newMemoryEngine(t)
		a := mustAccount(t, e, "a")
		b := mustAccount(t, e, "b")

		mustSubscribe(t, e, a.ID, b.ID)
		updated, err := e.Subscribe(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{b.ID}, updated.SubscribedToUserIDs)

		entries, err := e.Journal(ctx, OpAccountSubscribe)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Empty(t, entries[1].Affected, "no-op subscribe touches nothing")
	})

	t.Run("appended by option", func(t *testing.T) {
		e := newMemoryEngine(t, WithDuplicateSubscriptions(true))
		a := mustAccount(t, e, "a")
		b := mustAccount(t, e, "b")

		mustSubscribe(t, e, a.ID, b.ID)
		mustSubscribe(t, e, a.ID, b.ID)
		assert.Equal(t, []string{b.ID, b.ID}, subscriptionsOf(t, e, a.ID))

		// One unsubscribe removes every occurrence.
		updated, err := e.Unsubscribe(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.Empty(t, updated.SubscribedToUserIDs)
	})
}

func TestResolver(t *testing.T) {
	e := newMemoryEngine(t)
	ctx := context.Background()
	a := mustAccount(t, e, "a")
	b := mustAccount(t, e, "b")
	mustSubscribe(t, e, a.ID, b.ID)
	r := e.Resolver()

	ok, err := r.Exists(ctx, "account", a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Exists(ctx, "member_type", "business")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Exists(ctx, "post", "post-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.Exists(ctx, "comment", "x")
	assert.Error(t, err)

	ok, err = r.OwnerAccountExists(ctx, profileInput(b.ID))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.OwnerAccountExists(ctx, profileInput(""))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.IsSubscribed(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.IsSubscribed(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.IsSubscribed(ctx, "account-404", a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
