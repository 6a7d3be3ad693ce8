package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/roach88/refgraph/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (records + journal)
// 1 - Added expression index on records owner (userId)
const currentSchemaVersion = 1

// MemoryPath opens a private in-memory SQLite database when passed to Open.
const MemoryPath = ":memory:"

// Store groups the entity collections and the mutation journal of one
// backend. Construct with NewMemory or Open.
type Store struct {
	Accounts    Collection[*model.Account]
	Posts       Collection[*model.Post]
	Profiles    Collection[*model.Profile]
	MemberTypes Collection[*model.MemberType]
	Journal     Journal

	db *sql.DB
}

// Option configures a Store.
type Option func(*options)

type options struct {
	ids         IDGenerator
	memberTypes []*model.MemberType
}

// WithIDGenerator sets the generator used by Create. Defaults to UUIDv7.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		o.ids = g
	}
}

// WithMemberTypes replaces the seeded member types.
func WithMemberTypes(types ...*model.MemberType) Option {
	return func(o *options) {
		o.memberTypes = types
	}
}

func buildOptions(opts []Option) options {
	o := options{
		ids:         UUIDv7Generator{},
		memberTypes: model.DefaultMemberTypes(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewMemory creates a store backed by process memory, seeded with the
// member types.
func NewMemory(opts ...Option) *Store {
	o := buildOptions(opts)
	s := &Store{
		Accounts:    newMemoryCollection[*model.Account](model.KindAccount, o.ids),
		Posts:       newMemoryCollection[*model.Post](model.KindPost, o.ids),
		Profiles:    newMemoryCollection[*model.Profile](model.KindProfile, o.ids),
		MemberTypes: newMemoryCollection[*model.MemberType](model.KindMemberType, o.ids),
		Journal:     newMemoryJournal(),
	}
	// Fresh collections cannot reject the seed.
	_ = s.seedMemberTypes(context.Background(), o.memberTypes)
	return s
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically, then seeds any
// missing member types.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	o := buildOptions(opts)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time. A single connection also
	// keeps ":memory:" databases alive for the lifetime of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		Accounts:    newSQLiteCollection(db, model.KindAccount, o.ids, func() *model.Account { return &model.Account{} }),
		Posts:       newSQLiteCollection(db, model.KindPost, o.ids, func() *model.Post { return &model.Post{} }),
		Profiles:    newSQLiteCollection(db, model.KindProfile, o.ids, func() *model.Profile { return &model.Profile{} }),
		MemberTypes: newSQLiteCollection(db, model.KindMemberType, o.ids, func() *model.MemberType { return &model.MemberType{} }),
		Journal:     &sqliteJournal{db: db},
		db:          db,
	}
	if err := s.seedMemberTypes(context.Background(), o.memberTypes); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// seedMemberTypes inserts each member type unless its id already exists.
func (s *Store) seedMemberTypes(ctx context.Context, types []*model.MemberType) error {
	for _, mt := range types {
		if _, err := s.MemberTypes.Insert(ctx, mt); err != nil && !errors.Is(err, ErrDuplicateID) {
			return fmt.Errorf("seed member type %q: %w", mt.ID, err)
		}
	}
	return nil
}

// Close closes the database connection. A no-op for memory stores.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB, or nil for memory stores.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 indexes owned records by owner so cascades do not scan every
// post and profile body.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_records_owner
		ON records(kind, json_extract(body, '$.userId'))
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
