package store

import (
	"context"
	"errors"

	"github.com/roach88/refgraph/internal/model"
)

// ErrDuplicateID is returned by Insert when the id is already taken.
var ErrDuplicateID = errors.New("duplicate id")

// Collection is a keyed set of records of one entity kind.
//
// Implementations: memoryCollection (NewMemory) and sqliteCollection (Open).
// Both pass the same conformance suite.
type Collection[T model.Record[T]] interface {
	// Kind returns the entity kind held by the collection.
	Kind() model.Kind

	// FindMany returns every record matching filter in insertion order.
	// A nil filter returns all records.
	FindMany(ctx context.Context, filter *model.Filter) ([]T, error)

	// FindOne returns the first record matching filter, or ok=false.
	FindOne(ctx context.Context, filter *model.Filter) (rec T, ok bool, err error)

	// Get returns the record with the given id, or ok=false.
	Get(ctx context.Context, id string) (rec T, ok bool, err error)

	// Create assigns a fresh id, stores a copy of rec and returns it.
	Create(ctx context.Context, rec T) (T, error)

	// Insert stores rec under its existing id. Used for seeding.
	// Returns ErrDuplicateID if the id is taken.
	Insert(ctx context.Context, rec T) (T, error)

	// Update merges patch into the stored record. Returns ok=false if the id
	// is unknown; never creates. The id cannot be changed by a patch.
	Update(ctx context.Context, id string, patch model.Patch[T]) (rec T, ok bool, err error)

	// Delete removes and returns the record, or ok=false if unknown.
	Delete(ctx context.Context, id string) (rec T, ok bool, err error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}
