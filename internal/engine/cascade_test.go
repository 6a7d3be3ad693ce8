package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/refgraph/internal/model"
)

func TestCascade_Completeness(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		a := mustAccount(t, e, "a")
		other := mustAccount(t, e, "other")
		p1 := mustPost(t, e, a.ID, "p1")
		p2 := mustPost(t, e, a.ID, "p2")
		kept := mustPost(t, e, other.ID, "kept")
		profile := mustProfile(t, e, a.ID)

		report, err := e.DeleteAccount(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, report.Complete())
		assert.Equal(t, a.ID, report.Account.ID)
		assert.Equal(t, []string{p1.ID, p2.ID}, report.DeletedPosts)
		assert.Equal(t, profile.ID, report.DeletedProfile)

		posts, err := e.ListPosts(ctx, model.Eq("userId", a.ID))
		require.NoError(t, err)
		assert.Empty(t, posts)

		_, err = e.GetProfile(ctx, profile.ID)
		assert.True(t, IsNotFound(err))

		_, err = e.GetAccount(ctx, a.ID)
		assert.True(t, IsNotFound(err))

		_, err = e.GetPost(ctx, kept.ID)
		assert.NoError(t, err, "other owners' posts survive")

		types, err := e.ListMemberTypes(ctx)
		require.NoError(t, err)
		assert.Len(t, types, 2, "member types are never cascade-deleted")
	})
}

func TestCascade_ConcreteScenario(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		u1 := mustAccount(t, e, "u1")
		u2 := mustAccount(t, e, "u2")

		updated, err := e.Subscribe(ctx, u1.ID, u2.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{u2.ID}, updated.SubscribedToUserIDs)

		report, err := e.DeleteAccount(ctx, u2.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{u1.ID}, report.PurgedFrom)

		assert.Equal(t, []string{}, subscriptionsOf(t, e, u1.ID))
		_, err = e.GetAccount(ctx, u2.ID)
		assert.True(t, IsNotFound(err))
	})
}

func TestCascade_ReferentialIntegrity(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		var ids []string
		for _, name := range []string{"a", "b", "c", "d", "e"} {
			ids = append(ids, mustAccount(t, e, name).ID)
		}
		// Everyone follows everyone else and owns a post and a profile.
		for _, from := range ids {
			mustPost(t, e, from, "post by "+from)
			mustProfile(t, e, from)
			for _, to := range ids {
				if from != to {
					mustSubscribe(t, e, from, to)
				}
			}
		}

		for _, victim := range []string{ids[1], ids[3]} {
			_, err := e.DeleteAccount(ctx, victim)
			require.NoError(t, err)

			posts, err := e.ListPosts(ctx, model.Eq("userId", victim))
			require.NoError(t, err)
			assert.Empty(t, posts)

			profiles, err := e.ListProfiles(ctx, model.Eq("userId", victim))
			require.NoError(t, err)
			assert.Empty(t, profiles)

			followers, err := e.ListAccounts(ctx, model.Contains("subscribedToUserIds", victim))
			require.NoError(t, err)
			assert.Empty(t, followers)
		}

		// Surviving edges are untouched.
		assert.Equal(t, []string{ids[2], ids[4]}, subscriptionsOf(t, e, ids[0]))
		assert.Equal(t, []string{ids[0], ids[2]}, subscriptionsOf(t, e, ids[4]))
	})
}

func TestCascade_NotFoundHasNoSideEffects(t *testing.T) {
	e := newMemoryEngine(t)
	ctx := context.Background()
	a := mustAccount(t, e, "a")
	mustPost(t, e, a.ID, "p")

	report, err := e.DeleteAccount(ctx, "account-404")
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, IsNotFound(err))

	n, err := e.Store().Posts.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries, err := e.Journal(ctx, OpAccountDelete)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(ErrCodeNotFound), entries[0].Outcome)
	assert.Empty(t, entries[0].Affected)
}

func TestCascade_BestEffortPostFailure(t *testing.T) {
	e, m := newMeteredEngine(t)
	ctx := context.Background()
	a := mustAccount(t, e, "a")
	p1 := mustPost(t, e, a.ID, "p1")
	p2 := mustPost(t, e, a.ID, "p2")

	s := e.Store()
	s.Posts = failingPosts{Collection: s.Posts, failID: p1.ID}

	report, err := e.DeleteAccount(ctx, a.ID)
	require.NoError(t, err, "dependent failures do not fail the cascade")
	assert.False(t, report.Complete())
	assert.ErrorIs(t, report.Failures, errInjected)
	assert.Equal(t, []string{p2.ID}, report.DeletedPosts, "remaining posts still deleted")
	assert.Equal(t, []string{"post:" + p1.ID}, report.FailedRefs)

	_, err = e.GetAccount(ctx, a.ID)
	assert.True(t, IsNotFound(err), "root is still deleted")

	_, err = e.GetPost(ctx, p1.ID)
	assert.NoError(t, err, "failed dependent is left in place, not rolled back")

	entries, err := e.Journal(ctx, OpAccountDelete)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.OutcomeOK, entries[0].Outcome)
	assert.Contains(t, entries[0].Affected, "failed:post:"+p1.ID)
	assert.Contains(t, entries[0].Affected, "post:"+p2.ID)

	assert.Equal(t, 1.0, counterValue(t, m.failures.WithLabelValues("post")))
	assert.Equal(t, 1.0, counterValue(t, m.deleted.WithLabelValues("post")))
}

func TestCascade_BestEffortPurgeFailure(t *testing.T) {
	e := newMemoryEngine(t)
	ctx := context.Background()
	a := mustAccount(t, e, "a")
	b := mustAccount(t, e, "b")
	c := mustAccount(t, e, "c")
	mustSubscribe(t, e, b.ID, a.ID)
	mustSubscribe(t, e, c.ID, a.ID)

	s := e.Store()
	s.Accounts = failingAccountUpdates{Collection: s.Accounts, failID: b.ID}

	report, err := e.DeleteAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, report.PurgedFrom)
	assert.Equal(t, []string{"account:" + b.ID}, report.FailedRefs)

	// The dangling edge is reported, not hidden.
	assert.Equal(t, []string{a.ID}, subscriptionsOf(t, e, b.ID))
	assert.Empty(t, subscriptionsOf(t, e, c.ID))
}

func TestCascade_VanishedRootJournalsDependents(t *testing.T) {
	e := newMemoryEngine(t)
	ctx := context.Background()
	a := mustAccount(t, e, "a")
	p := mustPost(t, e, a.ID, "p")
	profile := mustProfile(t, e, a.ID)

	s := e.Store()
	s.Accounts = vanishingAccounts{Collection: s.Accounts}

	report, err := e.DeleteAccount(ctx, a.ID)
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, IsNotFound(err))

	_, err = e.GetPost(ctx, p.ID)
	assert.True(t, IsNotFound(err), "dependents removed before the root vanished stay removed")

	entries, err := e.Journal(ctx, OpAccountDelete)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(ErrCodeNotFound), entries[0].Outcome)
	assert.Equal(t, []string{"post:" + p.ID, "profile:" + profile.ID}, entries[0].Affected)
}

func TestCascade_RootDeleteFailureJournalsDependents(t *testing.T) {
	e := newMemoryEngine(t)
	ctx := context.Background()
	a := mustAccount(t, e, "a")
	p := mustPost(t, e, a.ID, "p")

	s := e.Store()
	s.Accounts = failingAccountDeletes{Collection: s.Accounts}

	report, err := e.DeleteAccount(ctx, a.ID)
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, "delete account root: injected failure", err.Error())

	entries, err := e.Journal(ctx, OpAccountDelete)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ERROR", entries[0].Outcome)
	assert.Equal(t, []string{"post:" + p.ID}, entries[0].Affected)
}

func TestCascade_IgnoresCancellationOnceStarted(t *testing.T) {
	e := newMemoryEngine(t)
	a := mustAccount(t, e, "a")
	p1 := mustPost(t, e, a.ID, "p1")
	p2 := mustPost(t, e, a.ID, "p2")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := e.Store()
	s.Posts = cancelingPosts{Collection: s.Posts, cancel: cancel}

	report, err := e.DeleteAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, report.Complete())
	assert.Equal(t, []string{p1.ID, p2.ID}, report.DeletedPosts)
	require.Error(t, ctx.Err(), "caller cancelled mid-cascade")

	bg := context.Background()
	_, err = e.GetAccount(bg, a.ID)
	assert.True(t, IsNotFound(err))

	entries, err := e.Journal(bg, OpAccountDelete)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.OutcomeOK, entries[0].Outcome)
	assert.Contains(t, entries[0].Affected, "post:"+p1.ID)
	assert.Contains(t, entries[0].Affected, "post:"+p2.ID)
}

func TestCascadeReport_Affected(t *testing.T) {
	r := &CascadeReport{
		Account:        &model.Account{ID: "account-1"},
		DeletedPosts:   []string{"post-1", "post-2"},
		DeletedProfile: "profile-1",
		PurgedFrom:     []string{"account-2"},
		FailedRefs:     []string{"post:post-3"},
	}

	assert.Equal(t, []string{
		"account:account-1",
		"post:post-1",
		"post:post-2",
		"profile:profile-1",
		"account:account-2",
		"failed:post:post-3",
	}, r.Affected())
}
