package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/refgraph/internal/model"
)

// memoryCollection keeps records in a map with insertion order tracked in a
// separate slice. Records are cloned on the way in and on the way out.
type memoryCollection[T model.Record[T]] struct {
	mu      sync.RWMutex
	kind    model.Kind
	ids     IDGenerator
	records map[string]T
	order   []string
}

func newMemoryCollection[T model.Record[T]](kind model.Kind, ids IDGenerator) *memoryCollection[T] {
	return &memoryCollection[T]{
		kind:    kind,
		ids:     ids,
		records: make(map[string]T),
		order:   []string{},
	}
}

func (c *memoryCollection[T]) Kind() model.Kind { return c.kind }

func (c *memoryCollection[T]) FindMany(ctx context.Context, filter *model.Filter) ([]T, error) {
	return c.find(ctx, filter, 0)
}

func (c *memoryCollection[T]) FindOne(ctx context.Context, filter *model.Filter) (T, bool, error) {
	var zero T
	found, err := c.find(ctx, filter, 1)
	if err != nil || len(found) == 0 {
		return zero, false, err
	}
	return found[0], true, nil
}

// find returns up to limit matches in insertion order; limit 0 means all.
func (c *memoryCollection[T]) find(ctx context.Context, filter *model.Filter, limit int) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("find %s: %w", c.kind, err)
	}
	if err := filter.Validate(nil); err != nil {
		return nil, fmt.Errorf("find %s: %w", c.kind, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []T{}
	for _, id := range c.order {
		rec := c.records[id]
		if !filter.Match(rec) {
			continue
		}
		out = append(out, rec.Clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (c *memoryCollection[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, fmt.Errorf("get %s: %w", c.kind, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.records[id]
	if !ok {
		return zero, false, nil
	}
	return rec.Clone(), true, nil
}

func (c *memoryCollection[T]) Create(ctx context.Context, rec T) (T, error) {
	rec = rec.Clone()
	rec.SetID(c.ids.NewID(c.kind))
	return c.insert(ctx, rec, "create")
}

func (c *memoryCollection[T]) Insert(ctx context.Context, rec T) (T, error) {
	return c.insert(ctx, rec.Clone(), "insert")
}

func (c *memoryCollection[T]) insert(ctx context.Context, rec T, op string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, fmt.Errorf("%s %s: %w", op, c.kind, err)
	}
	id := rec.GetID()
	if id == "" {
		return zero, fmt.Errorf("%s %s: empty id", op, c.kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.records[id]; exists {
		return zero, fmt.Errorf("%s %s %q: %w", op, c.kind, id, ErrDuplicateID)
	}
	c.records[id] = rec
	c.order = append(c.order, id)
	return rec.Clone(), nil
}

func (c *memoryCollection[T]) Update(ctx context.Context, id string, patch model.Patch[T]) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, fmt.Errorf("update %s: %w", c.kind, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stored, ok := c.records[id]
	if !ok {
		return zero, false, nil
	}
	next := stored.Clone()
	patch.Apply(next)
	next.SetID(id)
	c.records[id] = next
	return next.Clone(), true, nil
}

func (c *memoryCollection[T]) Delete(ctx context.Context, id string) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, fmt.Errorf("delete %s: %w", c.kind, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[id]
	if !ok {
		return zero, false, nil
	}
	delete(c.records, id)
	if i := slices.Index(c.order, id); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
	return rec, true, nil
}

func (c *memoryCollection[T]) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.kind, err)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records), nil
}
