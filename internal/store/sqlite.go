package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/refgraph/internal/model"
	"github.com/roach88/refgraph/internal/querysql"
)

// sqliteCollection stores records as JSON documents in the records table,
// keyed by (kind, id). Every operation runs in its own transaction.
type sqliteCollection[T model.Record[T]] struct {
	db    *sql.DB
	kind  model.Kind
	ids   IDGenerator
	newFn func() T
}

func newSQLiteCollection[T model.Record[T]](db *sql.DB, kind model.Kind, ids IDGenerator, newFn func() T) *sqliteCollection[T] {
	return &sqliteCollection[T]{db: db, kind: kind, ids: ids, newFn: newFn}
}

func (c *sqliteCollection[T]) Kind() model.Kind { return c.kind }

func (c *sqliteCollection[T]) FindMany(ctx context.Context, filter *model.Filter) ([]T, error) {
	return c.find(ctx, filter, 0)
}

func (c *sqliteCollection[T]) FindOne(ctx context.Context, filter *model.Filter) (T, bool, error) {
	var zero T
	found, err := c.find(ctx, filter, 1)
	if err != nil || len(found) == 0 {
		return zero, false, err
	}
	return found[0], true, nil
}

func (c *sqliteCollection[T]) find(ctx context.Context, filter *model.Filter, limit int) ([]T, error) {
	where, args, err := querysql.Compile("body", filter)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.kind, err)
	}

	query := "SELECT body FROM records WHERE kind = ? AND (" + where + ") ORDER BY seq ASC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := c.db.QueryContext(ctx, query, append([]any{string(c.kind)}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.kind, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.kind, err)
		}
		rec, err := c.decode(body)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", c.kind, err)
	}
	return out, nil
}

func (c *sqliteCollection[T]) Get(ctx context.Context, id string) (T, bool, error) {
	return c.get(ctx, c.db, id)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (c *sqliteCollection[T]) get(ctx context.Context, q querier, id string) (T, bool, error) {
	var zero T
	var body string
	err := q.QueryRowContext(ctx,
		"SELECT body FROM records WHERE kind = ? AND id = ?",
		string(c.kind), id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("get %s %q: %w", c.kind, id, err)
	}
	rec, err := c.decode(body)
	if err != nil {
		return zero, false, err
	}
	return rec, true, nil
}

func (c *sqliteCollection[T]) Create(ctx context.Context, rec T) (T, error) {
	rec = rec.Clone()
	rec.SetID(c.ids.NewID(c.kind))
	return c.insert(ctx, rec, "create")
}

func (c *sqliteCollection[T]) Insert(ctx context.Context, rec T) (T, error) {
	return c.insert(ctx, rec.Clone(), "insert")
}

func (c *sqliteCollection[T]) insert(ctx context.Context, rec T, op string) (T, error) {
	var zero T
	id := rec.GetID()
	if id == "" {
		return zero, fmt.Errorf("%s %s: empty id", op, c.kind)
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return zero, fmt.Errorf("%s %s: marshal: %w", op, c.kind, err)
	}

	_, err = c.db.ExecContext(ctx,
		"INSERT INTO records (kind, id, body) VALUES (?, ?, ?)",
		string(c.kind), id, string(body),
	)
	if isUniqueViolation(err) {
		return zero, fmt.Errorf("%s %s %q: %w", op, c.kind, id, ErrDuplicateID)
	}
	if err != nil {
		return zero, fmt.Errorf("%s %s: %w", op, c.kind, err)
	}
	return rec.Clone(), nil
}

func (c *sqliteCollection[T]) Update(ctx context.Context, id string, patch model.Patch[T]) (T, bool, error) {
	var zero T
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, false, fmt.Errorf("update %s: begin: %w", c.kind, err)
	}
	defer tx.Rollback()

	rec, ok, err := c.get(ctx, tx, id)
	if err != nil || !ok {
		return zero, false, err
	}
	patch.Apply(rec)
	rec.SetID(id)

	body, err := json.Marshal(rec)
	if err != nil {
		return zero, false, fmt.Errorf("update %s: marshal: %w", c.kind, err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE records SET body = ? WHERE kind = ? AND id = ?",
		string(body), string(c.kind), id,
	); err != nil {
		return zero, false, fmt.Errorf("update %s %q: %w", c.kind, id, err)
	}
	if err := tx.Commit(); err != nil {
		return zero, false, fmt.Errorf("update %s: commit: %w", c.kind, err)
	}
	return rec, true, nil
}

func (c *sqliteCollection[T]) Delete(ctx context.Context, id string) (T, bool, error) {
	var zero T
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, false, fmt.Errorf("delete %s: begin: %w", c.kind, err)
	}
	defer tx.Rollback()

	rec, ok, err := c.get(ctx, tx, id)
	if err != nil || !ok {
		return zero, false, err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM records WHERE kind = ? AND id = ?",
		string(c.kind), id,
	); err != nil {
		return zero, false, fmt.Errorf("delete %s %q: %w", c.kind, id, err)
	}
	if err := tx.Commit(); err != nil {
		return zero, false, fmt.Errorf("delete %s: commit: %w", c.kind, err)
	}
	return rec, true, nil
}

func (c *sqliteCollection[T]) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE kind = ?", string(c.kind),
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.kind, err)
	}
	return n, nil
}

// decode unmarshals a stored body. Clone normalizes fields JSON leaves nil.
func (c *sqliteCollection[T]) decode(body string) (T, error) {
	var zero T
	rec := c.newFn()
	if err := json.Unmarshal([]byte(body), rec); err != nil {
		return zero, fmt.Errorf("decode %s: %w", c.kind, err)
	}
	return rec.Clone(), nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
