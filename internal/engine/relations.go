package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/refgraph/internal/model"
	"github.com/roach88/refgraph/internal/store"
)

// Relations manages the subscription edge (subscriber -> followed), stored
// as followed ids inside the subscriber's SubscribedToUserIDs.
//
// Relations does not lock; Engine serializes calls against cascades.
type Relations struct {
	store    *store.Store
	resolver *Resolver

	allowSelf       bool
	allowDuplicates bool
}

// NewRelations creates a Relations manager with the default policy:
// self-subscription rejected and duplicate subscribes de-duplicated.
func NewRelations(s *store.Store, r *Resolver) *Relations {
	return &Relations{store: s, resolver: r}
}

// Subscribe adds followedID to the subscriber's set and returns the updated
// subscriber. changed is false when the edge already existed and duplicates
// are not allowed; the set is then left untouched.
func (r *Relations) Subscribe(ctx context.Context, subscriberID, followedID string) (rec *model.Account, changed bool, err error) {
	subscriber, err := r.resolver.account(ctx, subscriberID, "subscriberId")
	if err != nil {
		return nil, false, err
	}
	if _, err := r.resolver.account(ctx, followedID, "followedId"); err != nil {
		return nil, false, err
	}
	if subscriberID == followedID && !r.allowSelf {
		e := NewInvalidReferenceError(model.KindAccount, followedID, "followedId")
		e.Message = "account cannot subscribe to itself"
		return nil, false, e
	}
	if subscriber.Follows(followedID) && !r.allowDuplicates {
		return subscriber, false, nil
	}

	updated, ok, err := r.store.Accounts.Update(ctx, subscriberID, model.PatchFunc[*model.Account](func(a *model.Account) {
		a.SubscribedToUserIDs = append(a.SubscribedToUserIDs, followedID)
	}))
	if err != nil {
		return nil, false, fmt.Errorf("subscribe: %w", err)
	}
	if !ok {
		return nil, false, NewInvalidReferenceError(model.KindAccount, subscriberID, "subscriberId")
	}
	return updated, true, nil
}

// Unsubscribe removes every occurrence of followedID from the subscriber's
// set and returns the updated subscriber. Fails with EDGE_NOT_FOUND when the
// set would be unchanged.
func (r *Relations) Unsubscribe(ctx context.Context, subscriberID, followedID string) (*model.Account, error) {
	subscriber, err := r.resolver.account(ctx, subscriberID, "subscriberId")
	if err != nil {
		return nil, err
	}
	if _, err := r.resolver.account(ctx, followedID, "followedId"); err != nil {
		return nil, err
	}

	remaining := without(subscriber.SubscribedToUserIDs, followedID)
	if len(remaining) == len(subscriber.SubscribedToUserIDs) {
		return nil, NewEdgeNotFoundError(subscriberID, followedID)
	}

	updated, ok, err := r.store.Accounts.Update(ctx, subscriberID, removeSubscription(followedID))
	if err != nil {
		return nil, fmt.Errorf("unsubscribe: %w", err)
	}
	if !ok {
		return nil, NewInvalidReferenceError(model.KindAccount, subscriberID, "subscriberId")
	}
	return updated, nil
}

// removeSubscription is applied inside the store update so the removal is
// computed against the stored set, not a stale copy.
func removeSubscription(id string) model.PatchFunc[*model.Account] {
	return func(a *model.Account) {
		a.SubscribedToUserIDs = without(a.SubscribedToUserIDs, id)
	}
}

func without(ids []string, id string) []string {
	return slices.DeleteFunc(slices.Clone(ids), func(s string) bool { return s == id })
}
