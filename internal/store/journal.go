package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/refgraph/internal/model"
)

// Journal is the append-only record of mutating operations.
type Journal interface {
	// Append assigns the next seq and the content-addressed id, stores the
	// entry and returns it.
	Append(ctx context.Context, entry model.JournalEntry) (model.JournalEntry, error)

	// Entries returns entries in seq order. An empty operation returns all.
	// Returns an empty slice (not nil) when nothing matches.
	Entries(ctx context.Context, operation string) ([]model.JournalEntry, error)
}

// stamp fills the store-assigned fields of an entry.
func stamp(entry model.JournalEntry, seq int64) (model.JournalEntry, error) {
	if entry.Args == nil {
		entry.Args = map[string]any{}
	}
	if entry.Affected == nil {
		entry.Affected = []string{}
	}
	entry.Seq = seq
	id, err := model.JournalEntryID(entry.RequestID, entry.Operation, entry.Args, seq)
	if err != nil {
		return model.JournalEntry{}, err
	}
	entry.ID = id
	return entry, nil
}

type memoryJournal struct {
	mu      sync.RWMutex
	entries []model.JournalEntry
}

func newMemoryJournal() *memoryJournal {
	return &memoryJournal{entries: []model.JournalEntry{}}
}

func (j *memoryJournal) Append(ctx context.Context, entry model.JournalEntry) (model.JournalEntry, error) {
	if err := ctx.Err(); err != nil {
		return model.JournalEntry{}, fmt.Errorf("append journal: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	stamped, err := stamp(entry, int64(len(j.entries))+1)
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("append journal: %w", err)
	}
	stamped.Affected = slices.Clone(stamped.Affected)
	j.entries = append(j.entries, stamped)
	return stamped, nil
}

func (j *memoryJournal) Entries(ctx context.Context, operation string) ([]model.JournalEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	out := []model.JournalEntry{}
	for _, e := range j.entries {
		if operation != "" && e.Operation != operation {
			continue
		}
		e.Affected = slices.Clone(e.Affected)
		out = append(out, e)
	}
	return out, nil
}

type sqliteJournal struct {
	db *sql.DB
}

func (j *sqliteJournal) Append(ctx context.Context, entry model.JournalEntry) (model.JournalEntry, error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("append journal: begin: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) + 1 FROM journal").Scan(&seq); err != nil {
		return model.JournalEntry{}, fmt.Errorf("append journal: next seq: %w", err)
	}

	stamped, err := stamp(entry, seq)
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("append journal: %w", err)
	}
	argsJSON, err := model.MarshalCanonical(stamped.Args)
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("append journal: args: %w", err)
	}
	affectedJSON, err := json.Marshal(stamped.Affected)
	if err != nil {
		return model.JournalEntry{}, fmt.Errorf("append journal: affected: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO journal (seq, id, request_id, operation, args, outcome, affected)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		stamped.Seq,
		stamped.ID,
		stamped.RequestID,
		stamped.Operation,
		string(argsJSON),
		stamped.Outcome,
		string(affectedJSON),
	); err != nil {
		return model.JournalEntry{}, fmt.Errorf("append journal: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.JournalEntry{}, fmt.Errorf("append journal: commit: %w", err)
	}
	return stamped, nil
}

func (j *sqliteJournal) Entries(ctx context.Context, operation string) ([]model.JournalEntry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, id, request_id, operation, args, outcome, affected
		FROM journal
		WHERE ? = '' OR operation = ?
		ORDER BY seq ASC
	`, operation, operation)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	out := []model.JournalEntry{}
	for rows.Next() {
		var (
			e                      model.JournalEntry
			argsJSON, affectedJSON string
		)
		if err := rows.Scan(&e.Seq, &e.ID, &e.RequestID, &e.Operation, &argsJSON, &e.Outcome, &affectedJSON); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		if e.Args, err = model.ToArgs(json.RawMessage(argsJSON)); err != nil {
			return nil, fmt.Errorf("decode journal %d args: %w", e.Seq, err)
		}
		if err := json.Unmarshal([]byte(affectedJSON), &e.Affected); err != nil {
			return nil, fmt.Errorf("decode journal %d affected: %w", e.Seq, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return out, nil
}
