package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/refgraph/internal/engine"
	"github.com/roach88/refgraph/internal/model"
	"github.com/roach88/refgraph/internal/store"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against the engine's final
// state and returns one message per failure.
func EvaluateAssertions(ctx context.Context, e *engine.Engine, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(ctx, e, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(ctx context.Context, e *engine.Engine, a Assertion) error {
	switch a.Type {
	case AssertRecord:
		return assertRecord(ctx, e, a)
	case AssertAbsent:
		return assertAbsent(ctx, e, a)
	case AssertCount:
		return assertCount(ctx, e, a)
	case AssertJournal:
		return assertJournal(ctx, e, a)
	case AssertIntegrity:
		return assertIntegrity(ctx, e)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertRecord checks that the record exists and matches Expect.
func assertRecord(ctx context.Context, e *engine.Engine, a Assertion) error {
	rec, ok, err := fetch(ctx, e, a.Kind, a.ID)
	if err != nil {
		return err
	}
	if !ok {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("%s %s to exist", a.Kind, a.ID),
			Actual:   "not found",
		}
	}
	if msg := match(a.Expect, rec, string(a.Kind)); msg != "" {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("%s %s to match %v", a.Kind, a.ID, a.Expect),
			Actual:   msg,
		}
	}
	return nil
}

// assertAbsent checks that the record does not exist.
func assertAbsent(ctx context.Context, e *engine.Engine, a Assertion) error {
	rec, ok, err := fetch(ctx, e, a.Kind, a.ID)
	if err != nil {
		return err
	}
	if ok {
		return &AssertionError{
			Type:     AssertAbsent,
			Expected: fmt.Sprintf("%s %s to be absent", a.Kind, a.ID),
			Actual:   fmt.Sprintf("found %v", rec),
		}
	}
	return nil
}

// assertCount checks the number of records of Kind matching Filter.
func assertCount(ctx context.Context, e *engine.Engine, a Assertion) error {
	n, err := count(ctx, e, a.Kind, a.Filter)
	if err != nil {
		return err
	}
	if n != *a.Count {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%d %s records matching %s", *a.Count, a.Kind, describeFilter(a.Filter)),
			Actual:   fmt.Sprintf("%d records", n),
		}
	}
	return nil
}

// assertJournal checks the outcomes of the journal entries for Operation.
func assertJournal(ctx context.Context, e *engine.Engine, a Assertion) error {
	entries, err := e.Journal(ctx, a.Operation)
	if err != nil {
		return err
	}
	got := make([]string, 0, len(entries))
	for _, entry := range entries {
		got = append(got, entry.Outcome)
	}
	if !slices.Equal(got, a.Outcomes) {
		return &AssertionError{
			Type:     AssertJournal,
			Expected: fmt.Sprintf("%s outcomes %v", a.Operation, a.Outcomes),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

// assertIntegrity checks that no stored reference is dangling: every post
// and profile owner exists, every profile member type exists, and every
// subscription target exists.
func assertIntegrity(ctx context.Context, e *engine.Engine) error {
	s := e.Store()
	accounts, err := s.Accounts.FindMany(ctx, nil)
	if err != nil {
		return err
	}
	posts, err := s.Posts.FindMany(ctx, nil)
	if err != nil {
		return err
	}
	profiles, err := s.Profiles.FindMany(ctx, nil)
	if err != nil {
		return err
	}
	memberTypes, err := s.MemberTypes.FindMany(ctx, nil)
	if err != nil {
		return err
	}

	accountIDs := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		accountIDs[a.ID] = true
	}
	memberTypeIDs := make(map[string]bool, len(memberTypes))
	for _, m := range memberTypes {
		memberTypeIDs[m.ID] = true
	}

	var dangling []string
	for _, a := range accounts {
		for _, id := range a.SubscribedToUserIDs {
			if !accountIDs[id] {
				dangling = append(dangling, fmt.Sprintf("account %s subscribedToUserIds -> %s", a.ID, id))
			}
		}
	}
	for _, p := range posts {
		if !accountIDs[p.UserID] {
			dangling = append(dangling, fmt.Sprintf("post %s userId -> %s", p.ID, p.UserID))
		}
	}
	for _, p := range profiles {
		if !accountIDs[p.UserID] {
			dangling = append(dangling, fmt.Sprintf("profile %s userId -> %s", p.ID, p.UserID))
		}
		if !memberTypeIDs[p.MemberTypeID] {
			dangling = append(dangling, fmt.Sprintf("profile %s memberTypeId -> %s", p.ID, p.MemberTypeID))
		}
	}

	if len(dangling) > 0 {
		return &AssertionError{
			Type:     AssertIntegrity,
			Expected: "no dangling references",
			Actual:   strings.Join(dangling, "; "),
		}
	}
	return nil
}

// fetch reads one record as a map. A NOT_FOUND error reports ok=false.
func fetch(ctx context.Context, e *engine.Engine, kind model.Kind, id string) (map[string]any, bool, error) {
	var (
		rec any
		err error
	)
	switch kind {
	case model.KindAccount:
		rec, err = e.GetAccount(ctx, id)
	case model.KindPost:
		rec, err = e.GetPost(ctx, id)
	case model.KindProfile:
		rec, err = e.GetProfile(ctx, id)
	case model.KindMemberType:
		rec, err = e.GetMemberType(ctx, id)
	default:
		return nil, false, fmt.Errorf("unknown kind %q", kind)
	}
	if engine.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	m, err := model.ToArgs(rec)
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// count returns the number of records of kind matching filter.
func count(ctx context.Context, e *engine.Engine, kind model.Kind, filter *model.Filter) (int, error) {
	s := e.Store()
	switch kind {
	case model.KindAccount:
		return countOf(ctx, s.Accounts, filter)
	case model.KindPost:
		return countOf(ctx, s.Posts, filter)
	case model.KindProfile:
		return countOf(ctx, s.Profiles, filter)
	case model.KindMemberType:
		return countOf(ctx, s.MemberTypes, filter)
	}
	return 0, fmt.Errorf("unknown kind %q", kind)
}

func countOf[T model.Record[T]](ctx context.Context, c store.Collection[T], filter *model.Filter) (int, error) {
	if filter == nil {
		return c.Count(ctx)
	}
	recs, err := c.FindMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

func describeFilter(f *model.Filter) string {
	if f == nil {
		return "(no filter)"
	}
	if f.Values != nil {
		return fmt.Sprintf("%s %s %v", f.Field, f.Op, f.Values)
	}
	return fmt.Sprintf("%s %s %v", f.Field, f.Op, f.Value)
}

// match compares an expected value from YAML against an actual value in
// canonical form. Maps match as subsets (extra actual keys are ignored);
// lists must have the same length and match element by element; scalars
// are compared after normalizing integers. Returns "" on match, otherwise
// a description of the first mismatch.
func match(expected, actual any, path string) string {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return fmt.Sprintf("%s: expected object, got %T", path, actual)
		}
		keys := make([]string, 0, len(exp))
		for k := range exp {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			v, present := act[k]
			if !present {
				return fmt.Sprintf("%s.%s: missing", path, k)
			}
			if msg := match(exp[k], v, path+"."+k); msg != "" {
				return msg
			}
		}
		return ""
	case []any:
		act, ok := asList(actual)
		if !ok {
			return fmt.Sprintf("%s: expected list, got %T", path, actual)
		}
		if len(act) != len(exp) {
			return fmt.Sprintf("%s: expected %d elements %v, got %d %v", path, len(exp), exp, len(act), act)
		}
		for i := range exp {
			if msg := match(exp[i], act[i], fmt.Sprintf("%s[%d]", path, i)); msg != "" {
				return msg
			}
		}
		return ""
	case nil:
		if actual != nil {
			return fmt.Sprintf("%s: expected null, got %v", path, actual)
		}
		return ""
	}

	want, ok := model.Scalar(expected)
	if !ok {
		return fmt.Sprintf("%s: unsupported expected value %v (%T)", path, expected, expected)
	}
	got, ok := model.Scalar(actual)
	if !ok || got != want {
		return fmt.Sprintf("%s: expected %v, got %v", path, expected, actual)
	}
	return ""
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}
