package timetable

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// Cache holds the latest aggregate in memory and mirrors it to a snapshot
// file.
type Cache struct {
	path    string
	current atomic.Pointer[Aggregate]
}

// NewCache creates an empty cache backed by path, an empty path keeps the
// cache in memory only.
func NewCache(path string) *Cache {
	c := &Cache{path: path}
	empty := NewAggregate()
	c.current.Store(&empty)
	return c
}

// Load replaces the cached aggregate with the snapshot file.
func (c *Cache) Load() error {
	if c.path == "" {
		return nil
	}
	agg, err := LoadSnapshot(c.path)
	if err != nil {
		return err
	}
	c.current.Store(&agg)
	return nil
}

func (c *Cache) Current() Aggregate {
	return *c.current.Load()
}

// Replace saves agg to the snapshot file and makes it current.
func (c *Cache) Replace(agg Aggregate) error {
	if c.path != "" {
		err := SaveSnapshot(c.path, agg)
		if err != nil {
			return err
		}
	}
	c.current.Store(&agg)
	return nil
}

var ErrEmptyAggregate = errors.New("aggregate has no groups")

// Refresh runs a full aggregation and replaces the cache with its result. The
// previous aggregate is kept when the run fails or yields no groups.
func (c *Cache) Refresh(ctx context.Context, aggregator Aggregator) (Aggregate, error) {
	agg, err := aggregator.All(ctx)
	if err != nil {
		return Aggregate{}, err
	}
	if agg.Len() == 0 {
		return Aggregate{}, ErrEmptyAggregate
	}
	err = c.Replace(agg)
	if err != nil {
		return Aggregate{}, fmt.Errorf("save snapshot: %w", err)
	}
	return agg, nil
}
