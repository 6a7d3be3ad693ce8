package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/refgraph/internal/model"
	"github.com/roach88/refgraph/internal/store"
)

// CascadeReport describes what DeleteAccount removed.
//
// Dependent deletions are best-effort: a failure on one record is recorded in
// Failures and the cascade continues. Completed deletions are never rolled
// back.
type CascadeReport struct {
	Account        *model.Account `json:"account"`
	DeletedPosts   []string       `json:"deletedPosts"`
	DeletedProfile string         `json:"deletedProfile,omitempty"`
	PurgedFrom     []string       `json:"purgedFrom"`
	FailedRefs     []string       `json:"failedRefs,omitempty"`

	// Failures joins every per-record error (errors.Join); nil when the
	// cascade was complete.
	Failures error `json:"-"`
}

// Complete reports whether every dependent step succeeded.
func (r *CascadeReport) Complete() bool {
	return r.Failures == nil
}

// Affected lists every touched record as kind:id, with failed steps prefixed
// by "failed:".
func (r *CascadeReport) Affected() []string {
	out := []string{}
	if r.Account != nil {
		out = append(out, model.AffectedRef(model.KindAccount, r.Account.ID))
	}
	for _, id := range r.DeletedPosts {
		out = append(out, model.AffectedRef(model.KindPost, id))
	}
	if r.DeletedProfile != "" {
		out = append(out, model.AffectedRef(model.KindProfile, r.DeletedProfile))
	}
	for _, id := range r.PurgedFrom {
		out = append(out, model.AffectedRef(model.KindAccount, id))
	}
	for _, ref := range r.FailedRefs {
		out = append(out, "failed:"+ref)
	}
	return out
}

// Cascade deletes an account together with everything that depends on it.
//
// Order is root-last: posts, then the profile, then the account record, then
// the purge of the account's id from every other subscription set. The purge
// scans the whole account collection; there is no reverse index.
//
// Cascade does not lock; Engine serializes it against other mutations.
type Cascade struct {
	store   *store.Store
	logger  *slog.Logger
	metrics *Metrics
}

// NewCascade creates a Cascade coordinator. A nil logger discards output and
// nil metrics are not recorded.
func NewCascade(s *store.Store, logger *slog.Logger, metrics *Metrics) *Cascade {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cascade{store: s, logger: logger, metrics: metrics}
}

// DeleteAccount runs the cascade for accountID.
//
// Returns NOT_FOUND without side effects if the account is absent. Once the
// account is resolved the cascade ignores cancellation of ctx and runs to
// the end.
//
// Errors after that point (find posts, root delete, the account vanishing
// before the root delete) come back together with the partial report, so
// the caller can record what was already removed. A vanished account gives
// NOT_FOUND; that partial state is also logged.
func (c *Cascade) DeleteAccount(ctx context.Context, accountID string) (*CascadeReport, error) {
	if _, ok, err := c.store.Accounts.Get(ctx, accountID); err != nil {
		return nil, fmt.Errorf("delete account: %w", err)
	} else if !ok {
		return nil, NewNotFoundError(model.KindAccount, accountID)
	}
	ctx = context.WithoutCancel(ctx)

	report := &CascadeReport{DeletedPosts: []string{}, PurgedFrom: []string{}}
	var failures []error
	fail := func(kind model.Kind, id string, err error) {
		ref := model.AffectedRef(kind, id)
		c.logger.Warn("cascade step failed",
			"account", accountID,
			"record", ref,
			"error", err,
		)
		c.metrics.cascadeFailure(kind)
		report.FailedRefs = append(report.FailedRefs, ref)
		failures = append(failures, fmt.Errorf("%s: %w", ref, err))
	}

	// Posts: each deletion independent.
	posts, err := c.store.Posts.FindMany(ctx, model.Eq("userId", accountID))
	if err != nil {
		return report, fmt.Errorf("delete account: find posts: %w", err)
	}
	for _, p := range posts {
		if _, _, err := c.store.Posts.Delete(ctx, p.ID); err != nil {
			fail(model.KindPost, p.ID, err)
			continue
		}
		report.DeletedPosts = append(report.DeletedPosts, p.ID)
		c.metrics.cascadeDeleted(model.KindPost)
	}

	// Profile: at most one, but remove any strays.
	profiles, err := c.store.Profiles.FindMany(ctx, model.Eq("userId", accountID))
	if err != nil {
		fail(model.KindProfile, "*", err)
	}
	for _, p := range profiles {
		if _, _, err := c.store.Profiles.Delete(ctx, p.ID); err != nil {
			fail(model.KindProfile, p.ID, err)
			continue
		}
		if report.DeletedProfile == "" {
			report.DeletedProfile = p.ID
		}
		c.metrics.cascadeDeleted(model.KindProfile)
	}

	// Root.
	account, ok, err := c.store.Accounts.Delete(ctx, accountID)
	if err != nil {
		report.Failures = errors.Join(failures...)
		return report, fmt.Errorf("delete account root: %w", errors.Join(append([]error{err}, failures...)...))
	}
	if !ok {
		c.logger.Warn("account vanished during cascade; dependents already removed",
			"account", accountID,
			"deleted_posts", len(report.DeletedPosts),
			"deleted_profile", report.DeletedProfile,
		)
		report.Failures = errors.Join(failures...)
		return report, NewNotFoundError(model.KindAccount, accountID)
	}
	report.Account = account

	// Purge dangling edges from every other account.
	followers, err := c.store.Accounts.FindMany(ctx, model.Contains("subscribedToUserIds", accountID))
	if err != nil {
		fail(model.KindAccount, "*", err)
	}
	for _, f := range followers {
		if _, ok, err := c.store.Accounts.Update(ctx, f.ID, removeSubscription(accountID)); err != nil {
			fail(model.KindAccount, f.ID, err)
			continue
		} else if !ok {
			continue
		}
		report.PurgedFrom = append(report.PurgedFrom, f.ID)
		c.metrics.edgePurged()
	}

	report.Failures = errors.Join(failures...)
	return report, nil
}
