// Package cache keeps the parsed row stores of every configured sheet and
// rebuilds them from the source document when they go stale.
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	sqerrors "github.com/ukaji3/sheetquery-go/pkg/sheetquery/errors"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/models"
)

// Snapshot is one complete, immutable set of row stores built from a single
// decode of the workbook. Readers may hold it after the cache has moved on.
type Snapshot struct {
	Kind       models.SourceKind
	Marker     time.Time
	Stores     map[string]*models.RowStore
	BuiltAt    time.Time
	Generation uint64
}

// SheetCache owns the row stores of all configured sheets.
//
// Reads go through Get, which checks freshness and rebuilds under one mutex,
// then hands out the current snapshot pointer. A rebuild replaces the whole
// snapshot, so a reader sees either the old set or the new one. Concurrent
// callers that arrive during a rebuild wait and reuse its result.
type SheetCache struct {
	schemas []models.SheetSchema
	index   map[string]int
	policy  Policy
	log     *log.Entry
	now     func() time.Time

	mu         sync.Mutex
	generation uint64
	forceStale bool
	snap       atomic.Pointer[Snapshot]
}

// New creates a cache for schemas backed by policy. Schemas are validated and
// must have unique names.
func New(schemas []models.SheetSchema, policy Policy) (*SheetCache, error) {
	if len(schemas) == 0 {
		return nil, fmt.Errorf("at least one sheet schema is required")
	}
	index := make(map[string]int, len(schemas))
	for i, s := range schemas {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := index[s.Name]; dup {
			return nil, fmt.Errorf("duplicate sheet schema %q", s.Name)
		}
		index[s.Name] = i
	}

	return &SheetCache{
		schemas: append([]models.SheetSchema(nil), schemas...),
		index:   index,
		policy:  policy,
		log:     log.WithFields(log.Fields{"component": "sheet-cache", "source": policy.Kind()}),
		now:     time.Now,
	}, nil
}

// Kind returns the source kind of the cache's policy.
func (c *SheetCache) Kind() models.SourceKind {
	return c.policy.Kind()
}

// Schemas returns the configured schemas in configuration order.
func (c *SheetCache) Schemas() []models.SheetSchema {
	return append([]models.SheetSchema(nil), c.schemas...)
}

// Schema returns the schema for name.
func (c *SheetCache) Schema(name string) (models.SheetSchema, error) {
	i, ok := c.index[name]
	if !ok {
		return models.SheetSchema{}, sqerrors.UnknownSheet(name)
	}
	return c.schemas[i], nil
}

// Get returns a fresh snapshot, rebuilding it first if the policy says it is stale.
// A failed rebuild leaves the previous snapshot in place.
func (c *SheetCache) Get(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.snap.Load()
	if !c.forceStale {
		freshness, err := c.policy.Check(ctx, current)
		if err != nil {
			return nil, err
		}
		if freshness == Fresh {
			return current, nil
		}
	}
	return c.rebuildLocked(ctx)
}

// Store resolves the row store and schema for one sheet.
func (c *SheetCache) Store(ctx context.Context, name string) (*models.RowStore, models.SheetSchema, error) {
	schema, err := c.Schema(name)
	if err != nil {
		return nil, schema, err
	}
	snap, err := c.Get(ctx)
	if err != nil {
		return nil, schema, err
	}
	store, ok := snap.Stores[name]
	if !ok {
		return nil, schema, sqerrors.NotBuilt(name)
	}
	return store, schema, nil
}

// Peek returns the current snapshot without any freshness check, or nil.
func (c *SheetCache) Peek() *Snapshot {
	return c.snap.Load()
}

// PeekStore returns the currently held store for name without rebuilding.
func (c *SheetCache) PeekStore(name string) (*models.RowStore, error) {
	if _, err := c.Schema(name); err != nil {
		return nil, err
	}
	snap := c.snap.Load()
	if snap == nil || snap.Stores[name] == nil {
		return nil, sqerrors.NotBuilt(name)
	}
	return snap.Stores[name], nil
}

// Invalidate drops the policy's held document and marks the snapshot stale.
// The snapshot itself stays in memory until a rebuild succeeds.
func (c *SheetCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
}

func (c *SheetCache) invalidateLocked() {
	c.policy.Invalidate()
	c.forceStale = true
}

// Refresh invalidates and rebuilds synchronously, returning the elapsed time.
func (c *SheetCache) Refresh(ctx context.Context) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.now()
	c.invalidateLocked()
	_, err := c.rebuildLocked(ctx)
	return c.now().Sub(start), err
}

// Info returns source diagnostics plus a summary of the held snapshot.
func (c *SheetCache) Info() models.FileInfo {
	info := c.policy.Info()
	if snap := c.snap.Load(); snap != nil {
		maxRows := make(map[string]int, len(snap.Stores))
		for name, store := range snap.Stores {
			maxRows[name] = store.MaxRow
		}
		info.Cache = &models.CacheInfo{
			Generation: snap.Generation,
			BuiltAt:    snap.BuiltAt,
			MaxRows:    maxRows,
		}
	}
	return info
}

// rebuildLocked decodes the workbook once, extracts every configured sheet
// and swaps the snapshot. c.mu must be held.
func (c *SheetCache) rebuildLocked(ctx context.Context) (*Snapshot, error) {
	start := c.now()

	wb, marker, err := c.policy.Open(ctx)
	if err != nil {
		c.log.WithError(err).Warn("workbook unavailable, keeping previous snapshot")
		return nil, sqerrors.SourceUnavailable("open workbook", err)
	}

	stores, err := wb.ExtractAll(c.schemas)
	if closeErr := wb.Close(); closeErr != nil {
		c.log.WithError(closeErr).Warn("closing workbook")
	}
	if err != nil {
		c.log.WithError(err).Warn("workbook extraction failed, keeping previous snapshot")
		return nil, sqerrors.SourceUnavailable("extract sheets", err)
	}

	c.generation++
	snap := &Snapshot{
		Kind:       c.policy.Kind(),
		Marker:     marker,
		Stores:     stores,
		BuiltAt:    c.now(),
		Generation: c.generation,
	}
	c.snap.Store(snap)
	c.forceStale = false

	rows := 0
	for _, s := range stores {
		rows += s.RowCount()
	}
	c.log.WithFields(log.Fields{
		"generation": snap.Generation,
		"workbook":   wb.Name(),
		"sheets":     len(stores),
		"rows":       rows,
		"elapsed":    snap.BuiltAt.Sub(start).String(),
	}).Info("rebuilt sheet cache")

	return snap, nil
}
