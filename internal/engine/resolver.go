package engine

import (
	"context"
	"fmt"

	"github.com/roach88/refgraph/internal/model"
	"github.com/roach88/refgraph/internal/store"
)

// Resolver answers reference questions against the store. It holds no state
// of its own.
type Resolver struct {
	store *store.Store
}

// NewResolver creates a Resolver over s.
func NewResolver(s *store.Store) *Resolver {
	return &Resolver{store: s}
}

// Exists reports whether a record of kind with id is stored.
func (r *Resolver) Exists(ctx context.Context, kind model.Kind, id string) (bool, error) {
	var (
		ok  bool
		err error
	)
	switch kind {
	case model.KindAccount:
		_, ok, err = r.store.Accounts.Get(ctx, id)
	case model.KindPost:
		_, ok, err = r.store.Posts.Get(ctx, id)
	case model.KindProfile:
		_, ok, err = r.store.Profiles.Get(ctx, id)
	case model.KindMemberType:
		_, ok, err = r.store.MemberTypes.Get(ctx, id)
	default:
		return false, fmt.Errorf("exists: unknown kind %q", kind)
	}
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return ok, nil
}

// OwnerAccountExists reports whether the owner declared by payload is an
// existing account.
func (r *Resolver) OwnerAccountExists(ctx context.Context, payload model.Owned) (bool, error) {
	if payload.OwnerID() == "" {
		return false, nil
	}
	return r.Exists(ctx, model.KindAccount, payload.OwnerID())
}

// IsSubscribed reports whether subscriberID's set contains followedID.
// An unknown subscriber is not subscribed to anything.
func (r *Resolver) IsSubscribed(ctx context.Context, subscriberID, followedID string) (bool, error) {
	a, ok, err := r.store.Accounts.Get(ctx, subscriberID)
	if err != nil {
		return false, fmt.Errorf("is subscribed: %w", err)
	}
	return ok && a.Follows(followedID), nil
}

// account returns the account or INVALID_REFERENCE naming field.
func (r *Resolver) account(ctx context.Context, id, field string) (*model.Account, error) {
	a, ok, err := r.store.Accounts.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", field, err)
	}
	if !ok {
		return nil, NewInvalidReferenceError(model.KindAccount, id, field)
	}
	return a, nil
}
