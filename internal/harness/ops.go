package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/roach88/refgraph/internal/engine"
	"github.com/roach88/refgraph/internal/model"
)

// OpIsSubscribed is the scenario name for Engine.IsSubscribed, a read with
// no journal entry of its own.
const OpIsSubscribed = "account.is_subscribed"

// ArgsError reports step args that could not be decoded into the
// operation's payload. It is a scenario authoring error, not an engine
// outcome.
type ArgsError struct {
	Op  string
	Err error
}

func (e *ArgsError) Error() string {
	return fmt.Sprintf("op %s: bad args: %v", e.Op, e.Err)
}

func (e *ArgsError) Unwrap() error { return e.Err }

type opFunc func(ctx context.Context, e *engine.Engine, args map[string]any) (any, error)

type idArgs struct {
	ID string `json:"id"`
}

type filterArgs struct {
	Filter *model.Filter `json:"filter"`
}

type edgeArgs struct {
	SubscriberID string `json:"subscriberId"`
	FollowedID   string `json:"followedId"`
}

type patchArgs[P any] struct {
	ID    string `json:"id"`
	Patch P      `json:"patch"`
}

// list wraps list results so every step result is an object.
type list[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func listOf[T any](items []T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return list[T]{Items: items, Count: len(items)}, nil
}

// call decodes args into A and invokes fn.
func call[A any](fn func(ctx context.Context, e *engine.Engine, a A) (any, error)) opFunc {
	return func(ctx context.Context, e *engine.Engine, args map[string]any) (any, error) {
		var a A
		if err := decodeArgs(args, &a); err != nil {
			return nil, &ArgsError{Err: err}
		}
		return fn(ctx, e, a)
	}
}

// operations maps scenario op names onto engine calls.
var operations = map[string]opFunc{
	engine.OpAccountList: call(func(ctx context.Context, e *engine.Engine, a filterArgs) (any, error) {
		return listOf(e.ListAccounts(ctx, a.Filter))
	}),
	engine.OpAccountGet: call(func(ctx context.Context, e *engine.Engine, a idArgs) (any, error) {
		return e.GetAccount(ctx, a.ID)
	}),
	engine.OpAccountCreate: call(func(ctx context.Context, e *engine.Engine, a model.AccountInput) (any, error) {
		return e.CreateAccount(ctx, a)
	}),
	engine.OpAccountUpdate: call(func(ctx context.Context, e *engine.Engine, a patchArgs[model.AccountPatch]) (any, error) {
		return e.UpdateAccount(ctx, a.ID, a.Patch)
	}),
	engine.OpAccountDelete: call(func(ctx context.Context, e *engine.Engine, a idArgs) (any, error) {
		return e.DeleteAccount(ctx, a.ID)
	}),
	engine.OpAccountSubscribe: call(func(ctx context.Context, e *engine.Engine, a edgeArgs) (any, error) {
		return e.Subscribe(ctx, a.SubscriberID, a.FollowedID)
	}),
	engine.OpAccountUnsubscribe: call(func(ctx context.Context, e *engine.Engine, a edgeArgs) (any, error) {
		return e.Unsubscribe(ctx, a.SubscriberID, a.FollowedID)
	}),
	OpIsSubscribed: call(func(ctx context.Context, e *engine.Engine, a edgeArgs) (any, error) {
		ok, err := e.IsSubscribed(ctx, a.SubscriberID, a.FollowedID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"subscribed": ok}, nil
	}),

	engine.OpPostList: call(func(ctx context.Context, e *engine.Engine, a filterArgs) (any, error) {
		return listOf(e.ListPosts(ctx, a.Filter))
	}),
	engine.OpPostGet: call(func(ctx context.Context, e *engine.Engine, a idArgs) (any, error) {
		return e.GetPost(ctx, a.ID)
	}),
	engine.OpPostCreate: call(func(ctx context.Context, e *engine.Engine, a model.PostInput) (any, error) {
		return e.CreatePost(ctx, a)
	}),
	engine.OpPostUpdate: call(func(ctx context.Context, e *engine.Engine, a patchArgs[model.PostPatch]) (any, error) {
		return e.UpdatePost(ctx, a.ID, a.Patch)
	}),
	engine.OpPostDelete: call(func(ctx context.Context, e *engine.Engine, a idArgs) (any, error) {
		return e.DeletePost(ctx, a.ID)
	}),

	engine.OpProfileList: call(func(ctx context.Context, e *engine.Engine, a filterArgs) (any, error) {
		return listOf(e.ListProfiles(ctx, a.Filter))
	}),
	engine.OpProfileGet: call(func(ctx context.Context, e *engine.Engine, a idArgs) (any, error) {
		return e.GetProfile(ctx, a.ID)
	}),
	engine.OpProfileCreate: call(func(ctx context.Context, e *engine.Engine, a model.ProfileInput) (any, error) {
		return e.CreateProfile(ctx, a)
	}),
	engine.OpProfileUpdate: call(func(ctx context.Context, e *engine.Engine, a patchArgs[model.ProfilePatch]) (any, error) {
		return e.UpdateProfile(ctx, a.ID, a.Patch)
	}),
	engine.OpProfileDelete: call(func(ctx context.Context, e *engine.Engine, a idArgs) (any, error) {
		return e.DeleteProfile(ctx, a.ID)
	}),

	engine.OpMemberTypeList: call(func(ctx context.Context, e *engine.Engine, _ struct{}) (any, error) {
		return listOf(e.ListMemberTypes(ctx))
	}),
	engine.OpMemberTypeGet: call(func(ctx context.Context, e *engine.Engine, a idArgs) (any, error) {
		return e.GetMemberType(ctx, a.ID)
	}),
	engine.OpMemberTypeUpdate: call(func(ctx context.Context, e *engine.Engine, a patchArgs[model.MemberTypePatch]) (any, error) {
		return e.UpdateMemberType(ctx, a.ID, a.Patch)
	}),
}

// Operations returns the op names a scenario step may use, sorted.
func Operations() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// decodeArgs converts YAML args into a typed payload through JSON, so the
// payload's json tags apply. Unknown keys are rejected.
func decodeArgs(args map[string]any, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// resultMap converts an operation result to the canonical-safe map form
// used for matching and traces.
func resultMap(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	return model.ToArgs(v)
}
