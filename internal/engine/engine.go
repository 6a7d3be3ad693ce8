package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/refgraph/internal/model"
	"github.com/roach88/refgraph/internal/schema"
	"github.com/roach88/refgraph/internal/store"
)

// Operation names used for journal entries and metrics labels.
const (
	OpAccountList        = "account.list"
	OpAccountGet         = "account.get"
	OpAccountCreate      = "account.create"
	OpAccountUpdate      = "account.update"
	OpAccountDelete      = "account.delete"
	OpAccountSubscribe   = "account.subscribe"
	OpAccountUnsubscribe = "account.unsubscribe"
	OpPostList           = "post.list"
	OpPostGet            = "post.get"
	OpPostCreate         = "post.create"
	OpPostUpdate         = "post.update"
	OpPostDelete         = "post.delete"
	OpProfileList        = "profile.list"
	OpProfileGet         = "profile.get"
	OpProfileCreate      = "profile.create"
	OpProfileUpdate      = "profile.update"
	OpProfileDelete      = "profile.delete"
	OpMemberTypeList     = "member_type.list"
	OpMemberTypeGet      = "member_type.get"
	OpMemberTypeUpdate   = "member_type.update"
)

// outcomeError labels failures that are not engine Errors (store I/O).
const outcomeError = "ERROR"

// Engine is the operation surface consumed by the request layer.
//
// Thread-safety model:
//   - Every mutating operation holds the write lock for its whole duration,
//     so a cascade can never interleave with a subscribe that targets the
//     account being deleted.
//   - Reads hold the read lock and never observe a half-finished cascade.
//   - The lock is per Engine. Two processes (or two Engines) sharing one
//     SQLite file are not serialized against each other; only SQLite's own
//     per-statement locking applies between them.
//
// Every mutation, successful or not, appends one journal entry.
type Engine struct {
	mu sync.RWMutex

	store      *store.Store
	resolver   *Resolver
	relations  *Relations
	cascade    *Cascade
	validator  *schema.Validator
	requestIDs RequestIDGenerator
	logger     *slog.Logger
	metrics    *Metrics

	allowSelf       bool
	allowDuplicates bool
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics enables prometheus counters. Default: no metrics.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithRequestIDs sets the request id generator used for journal entries.
// Default: UUIDv7Generator.
func WithRequestIDs(g RequestIDGenerator) EngineOption {
	return func(e *Engine) {
		e.requestIDs = g
	}
}

// WithValidator sets the payload validator. Default: the embedded schema.
func WithValidator(v *schema.Validator) EngineOption {
	return func(e *Engine) {
		e.validator = v
	}
}

// WithSelfSubscription permits an account to subscribe to itself.
// Default: false, rejected with INVALID_REFERENCE.
func WithSelfSubscription(allow bool) EngineOption {
	return func(e *Engine) {
		e.allowSelf = allow
	}
}

// WithDuplicateSubscriptions makes a repeated subscribe append the id again
// instead of succeeding without change. Default: false.
func WithDuplicateSubscriptions(allow bool) EngineOption {
	return func(e *Engine) {
		e.allowDuplicates = allow
	}
}

// New creates an Engine over s.
func New(s *store.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:      s,
		requestIDs: UUIDv7Generator{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.validator == nil {
		e.validator = schema.MustNew()
	}

	e.resolver = NewResolver(s)
	e.relations = NewRelations(s, e.resolver)
	e.relations.allowSelf = e.allowSelf
	e.relations.allowDuplicates = e.allowDuplicates
	e.cascade = NewCascade(s, e.logger, e.metrics)
	return e
}

// Store returns the underlying store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Resolver returns the engine's association resolver.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// =============================================================================
// Accounts
// =============================================================================

// ListAccounts returns accounts matching filter (nil for all).
func (e *Engine) ListAccounts(ctx context.Context, filter *model.Filter) (recs []*model.Account, err error) {
	defer e.read(OpAccountList)(&err)
	if err := filter.Validate(model.AccountFields); err != nil {
		return nil, NewValidationError(err)
	}
	return e.store.Accounts.FindMany(ctx, filter)
}

// GetAccount returns the account or NOT_FOUND.
func (e *Engine) GetAccount(ctx context.Context, id string) (rec *model.Account, err error) {
	defer e.read(OpAccountGet)(&err)
	return get(ctx, e.store.Accounts, id)
}

// CreateAccount creates an account with an empty subscription set.
func (e *Engine) CreateAccount(ctx context.Context, in model.AccountInput) (rec *model.Account, err error) {
	m := e.begin(ctx, OpAccountCreate, argsOf(in, nil))
	defer func() { m.end(err, refsOf(model.KindAccount, rec, err)) }()

	if err := e.validate(schema.AccountInput, in); err != nil {
		return nil, err
	}
	rec, err = e.store.Accounts.Create(ctx, in.Record())
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return rec, nil
}

// UpdateAccount merges patch into the account. Subscriptions are not
// patchable; use Subscribe and Unsubscribe.
func (e *Engine) UpdateAccount(ctx context.Context, id string, patch model.AccountPatch) (rec *model.Account, err error) {
	m := e.begin(ctx, OpAccountUpdate, argsOf(patch, map[string]any{"id": id}))
	defer func() { m.end(err, refsOf(model.KindAccount, rec, err)) }()

	if err := e.validate(schema.AccountPatch, patch); err != nil {
		return nil, err
	}
	return update(ctx, e.store.Accounts, id, patch)
}

// DeleteAccount removes the account and its posts, profile and incoming
// subscription edges. See Cascade.DeleteAccount.
//
// On error the returned report is nil, but the journal entry still lists
// every record the cascade removed before failing.
func (e *Engine) DeleteAccount(ctx context.Context, id string) (report *CascadeReport, err error) {
	m := e.begin(ctx, OpAccountDelete, map[string]any{"id": id})
	var partial *CascadeReport
	defer func() {
		var affected []string
		if partial != nil {
			affected = partial.Affected()
		}
		m.end(err, affected)
	}()

	partial, err = e.cascade.DeleteAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	return partial, nil
}

// Subscribe makes subscriberID follow followedID and returns the updated
// subscriber.
func (e *Engine) Subscribe(ctx context.Context, subscriberID, followedID string) (rec *model.Account, err error) {
	m := e.begin(ctx, OpAccountSubscribe, map[string]any{"subscriberId": subscriberID, "followedId": followedID})
	var changed bool
	defer func() {
		var affected []string
		if changed {
			affected = refsOf(model.KindAccount, rec, err)
		}
		m.end(err, affected)
	}()

	rec, changed, err = e.relations.Subscribe(ctx, subscriberID, followedID)
	return rec, err
}

// Unsubscribe removes the edge subscriberID -> followedID and returns the
// updated subscriber.
func (e *Engine) Unsubscribe(ctx context.Context, subscriberID, followedID string) (rec *model.Account, err error) {
	m := e.begin(ctx, OpAccountUnsubscribe, map[string]any{"subscriberId": subscriberID, "followedId": followedID})
	defer func() { m.end(err, refsOf(model.KindAccount, rec, err)) }()

	return e.relations.Unsubscribe(ctx, subscriberID, followedID)
}

// IsSubscribed reports whether subscriberID follows followedID.
func (e *Engine) IsSubscribed(ctx context.Context, subscriberID, followedID string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.resolver.IsSubscribed(ctx, subscriberID, followedID)
}

// =============================================================================
// Posts
// =============================================================================

// ListPosts returns posts matching filter (nil for all).
func (e *Engine) ListPosts(ctx context.Context, filter *model.Filter) (recs []*model.Post, err error) {
	defer e.read(OpPostList)(&err)
	if err := filter.Validate(model.PostFields); err != nil {
		return nil, NewValidationError(err)
	}
	return e.store.Posts.FindMany(ctx, filter)
}

// GetPost returns the post or NOT_FOUND.
func (e *Engine) GetPost(ctx context.Context, id string) (rec *model.Post, err error) {
	defer e.read(OpPostGet)(&err)
	return get(ctx, e.store.Posts, id)
}

// CreatePost creates a post. Fails with INVALID_REFERENCE if the owner
// account does not exist; nothing is stored in that case.
func (e *Engine) CreatePost(ctx context.Context, in model.PostInput) (rec *model.Post, err error) {
	m := e.begin(ctx, OpPostCreate, argsOf(in, nil))
	defer func() { m.end(err, refsOf(model.KindPost, rec, err)) }()

	if err := e.validate(schema.PostInput, in); err != nil {
		return nil, err
	}
	if err := e.requireOwner(ctx, in); err != nil {
		return nil, err
	}
	rec, err = e.store.Posts.Create(ctx, in.Record())
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return rec, nil
}

// UpdatePost merges patch into the post.
func (e *Engine) UpdatePost(ctx context.Context, id string, patch model.PostPatch) (rec *model.Post, err error) {
	m := e.begin(ctx, OpPostUpdate, argsOf(patch, map[string]any{"id": id}))
	defer func() { m.end(err, refsOf(model.KindPost, rec, err)) }()

	if err := e.validate(schema.PostPatch, patch); err != nil {
		return nil, err
	}
	return update(ctx, e.store.Posts, id, patch)
}

// DeletePost removes and returns the post.
func (e *Engine) DeletePost(ctx context.Context, id string) (rec *model.Post, err error) {
	m := e.begin(ctx, OpPostDelete, map[string]any{"id": id})
	defer func() { m.end(err, refsOf(model.KindPost, rec, err)) }()

	return remove(ctx, e.store.Posts, id)
}

// =============================================================================
// Profiles
// =============================================================================

// ListProfiles returns profiles matching filter (nil for all).
func (e *Engine) ListProfiles(ctx context.Context, filter *model.Filter) (recs []*model.Profile, err error) {
	defer e.read(OpProfileList)(&err)
	if err := filter.Validate(model.ProfileFields); err != nil {
		return nil, NewValidationError(err)
	}
	return e.store.Profiles.FindMany(ctx, filter)
}

// GetProfile returns the profile or NOT_FOUND.
func (e *Engine) GetProfile(ctx context.Context, id string) (rec *model.Profile, err error) {
	defer e.read(OpProfileGet)(&err)
	return get(ctx, e.store.Profiles, id)
}

// CreateProfile creates the owner's profile. The member type is optional.
// Fails with INVALID_REFERENCE for an unknown owner or member type and
// PROFILE_EXISTS if the owner already has one.
func (e *Engine) CreateProfile(ctx context.Context, in model.ProfileInput) (rec *model.Profile, err error) {
	m := e.begin(ctx, OpProfileCreate, argsOf(in, nil))
	defer func() { m.end(err, refsOf(model.KindProfile, rec, err)) }()

	if err := e.validate(schema.ProfileInput, in); err != nil {
		return nil, err
	}
	if err := e.requireOwner(ctx, in); err != nil {
		return nil, err
	}
	if in.MemberTypeID != "" {
		if err := e.requireMemberType(ctx, in.MemberTypeID); err != nil {
			return nil, err
		}
	}
	existing, ok, err := e.store.Profiles.FindOne(ctx, model.Eq("userId", in.UserID))
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	if ok {
		return nil, NewProfileExistsError(in.UserID, existing.ID)
	}

	rec, err = e.store.Profiles.Create(ctx, in.Record())
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return rec, nil
}

// UpdateProfile merges patch into the profile. A changed member type must
// exist.
func (e *Engine) UpdateProfile(ctx context.Context, id string, patch model.ProfilePatch) (rec *model.Profile, err error) {
	m := e.begin(ctx, OpProfileUpdate, argsOf(patch, map[string]any{"id": id}))
	defer func() { m.end(err, refsOf(model.KindProfile, rec, err)) }()

	if err := e.validate(schema.ProfilePatch, patch); err != nil {
		return nil, err
	}
	if patch.MemberTypeID != nil {
		if err := e.requireMemberType(ctx, *patch.MemberTypeID); err != nil {
			return nil, err
		}
	}
	return update(ctx, e.store.Profiles, id, patch)
}

// DeleteProfile removes and returns the profile.
func (e *Engine) DeleteProfile(ctx context.Context, id string) (rec *model.Profile, err error) {
	m := e.begin(ctx, OpProfileDelete, map[string]any{"id": id})
	defer func() { m.end(err, refsOf(model.KindProfile, rec, err)) }()

	return remove(ctx, e.store.Profiles, id)
}

// =============================================================================
// Member types
// =============================================================================

// ListMemberTypes returns every member type.
func (e *Engine) ListMemberTypes(ctx context.Context) (recs []*model.MemberType, err error) {
	defer e.read(OpMemberTypeList)(&err)
	return e.store.MemberTypes.FindMany(ctx, nil)
}

// GetMemberType returns the member type or NOT_FOUND.
func (e *Engine) GetMemberType(ctx context.Context, id string) (rec *model.MemberType, err error) {
	defer e.read(OpMemberTypeGet)(&err)
	return get(ctx, e.store.MemberTypes, id)
}

// UpdateMemberType merges patch into the member type.
func (e *Engine) UpdateMemberType(ctx context.Context, id string, patch model.MemberTypePatch) (rec *model.MemberType, err error) {
	m := e.begin(ctx, OpMemberTypeUpdate, argsOf(patch, map[string]any{"id": id}))
	defer func() { m.end(err, refsOf(model.KindMemberType, rec, err)) }()

	if err := e.validate(schema.MemberTypePatch, patch); err != nil {
		return nil, err
	}
	return update(ctx, e.store.MemberTypes, id, patch)
}

// Journal returns journal entries, optionally restricted to one operation.
func (e *Engine) Journal(ctx context.Context, operation string) ([]model.JournalEntry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Journal.Entries(ctx, operation)
}

// =============================================================================
// helpers
// =============================================================================

func (e *Engine) validate(def schema.Definition, payload any) error {
	if err := e.validator.Validate(def, payload); err != nil {
		return NewValidationError(err)
	}
	return nil
}

func (e *Engine) requireOwner(ctx context.Context, payload model.Owned) error {
	ok, err := e.resolver.OwnerAccountExists(ctx, payload)
	if err != nil {
		return err
	}
	if !ok {
		return NewInvalidReferenceError(model.KindAccount, payload.OwnerID(), "userId")
	}
	return nil
}

func (e *Engine) requireMemberType(ctx context.Context, id string) error {
	ok, err := e.resolver.Exists(ctx, model.KindMemberType, id)
	if err != nil {
		return err
	}
	if !ok {
		return NewInvalidReferenceError(model.KindMemberType, id, "memberTypeId")
	}
	return nil
}

func get[T model.Record[T]](ctx context.Context, c store.Collection[T], id string) (T, error) {
	var zero T
	rec, ok, err := c.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, NewNotFoundError(c.Kind(), id)
	}
	return rec, nil
}

func update[T model.Record[T]](ctx context.Context, c store.Collection[T], id string, patch model.Patch[T]) (T, error) {
	var zero T
	rec, ok, err := c.Update(ctx, id, patch)
	if err != nil {
		return zero, fmt.Errorf("update %s: %w", c.Kind(), err)
	}
	if !ok {
		return zero, NewNotFoundError(c.Kind(), id)
	}
	return rec, nil
}

func remove[T model.Record[T]](ctx context.Context, c store.Collection[T], id string) (T, error) {
	var zero T
	rec, ok, err := c.Delete(ctx, id)
	if err != nil {
		return zero, fmt.Errorf("delete %s: %w", c.Kind(), err)
	}
	if !ok {
		return zero, NewNotFoundError(c.Kind(), id)
	}
	return rec, nil
}

// refsOf returns [kind:id] for the record of a successful operation.
func refsOf[T model.Record[T]](kind model.Kind, rec T, err error) []string {
	if err != nil {
		return nil
	}
	return []string{model.AffectedRef(kind, rec.GetID())}
}
