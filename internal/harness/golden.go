package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/refgraph/internal/engine"
	"github.com/roach88/refgraph/internal/model"
)

// Snapshot captures the store and journal after a scenario run.
// Field order is fixed so the rendered JSON is deterministic.
type Snapshot struct {
	Scenario    string              `json:"scenario"`
	Accounts    []*model.Account    `json:"accounts"`
	Posts       []*model.Post       `json:"posts"`
	Profiles    []*model.Profile    `json:"profiles"`
	MemberTypes []*model.MemberType `json:"memberTypes"`
	Journal     []JournalLine       `json:"journal"`
}

// JournalLine is a journal entry without its args and content hash, which
// are covered by store tests and would only add noise to snapshots.
type JournalLine struct {
	Seq       int64    `json:"seq"`
	RequestID string   `json:"requestId"`
	Operation string   `json:"operation"`
	Outcome   string   `json:"outcome"`
	Affected  []string `json:"affected"`
}

// TakeSnapshot reads every collection and the journal in store order.
func TakeSnapshot(ctx context.Context, name string, e *engine.Engine) (*Snapshot, error) {
	s := e.Store()
	snap := &Snapshot{Scenario: name}

	var err error
	if snap.Accounts, err = s.Accounts.FindMany(ctx, nil); err != nil {
		return nil, err
	}
	if snap.Posts, err = s.Posts.FindMany(ctx, nil); err != nil {
		return nil, err
	}
	if snap.Profiles, err = s.Profiles.FindMany(ctx, nil); err != nil {
		return nil, err
	}
	if snap.MemberTypes, err = s.MemberTypes.FindMany(ctx, nil); err != nil {
		return nil, err
	}

	entries, err := e.Journal(ctx, "")
	if err != nil {
		return nil, err
	}
	snap.Journal = make([]JournalLine, 0, len(entries))
	for _, entry := range entries {
		affected := entry.Affected
		if affected == nil {
			affected = []string{}
		}
		snap.Journal = append(snap.Journal, JournalLine{
			Seq:       entry.Seq,
			RequestID: entry.RequestID,
			Operation: entry.Operation,
			Outcome:   entry.Outcome,
			Affected:  affected,
		})
	}
	return snap, nil
}

// Render returns the snapshot as indented JSON with a trailing newline.
func (s *Snapshot) Render() ([]byte, error) {
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// RunWithGolden executes a scenario, fails the test on any expectation or
// assertion failure, and compares the final state against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the result's final state against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := result.State.Render()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
