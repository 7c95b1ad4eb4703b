// Package records owns every record list kept in the slot store. Each list has
// exactly one Collection that reads, rewrites and announces changes to it.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"terradjunto/internal/logger"
	"terradjunto/internal/metrics"
	"terradjunto/internal/store"

	"github.com/google/uuid"
)

// Record is anything kept in a collection slot.
type Record interface {
	RecordID() string
}

type EventKind string

const (
	EventCreated  EventKind = "created"
	EventUpdated  EventKind = "updated"
	EventRemoved  EventKind = "removed"
	EventReplaced EventKind = "replaced"
)

// Event describes one change. Record is the zero value for EventReplaced.
type Event[T Record] struct {
	Kind       EventKind
	Collection string
	ID         string
	Record     T
}

// Collection is a list of records persisted as a JSON array under one slot key,
// newest first. Every mutation reads the slot, changes it and rewrites it whole.
//
// Storage failures never reach callers: reads fall back to an empty list and
// failed writes leave the cached list holding the attempted change.
type Collection[T Record] struct {
	kv      store.KV
	key     string
	name    string
	upgrade func(*T)
	log     *slog.Logger

	mu     sync.Mutex
	cache  []T
	loaded bool

	subMu   sync.RWMutex
	subs    map[int]func(Event[T])
	nextSub int
}

// NewCollection binds a collection to a slot. upgrade, when set, runs on every
// loaded record to bring older stored shapes up to date.
func NewCollection[T Record](kv store.KV, key, name string, upgrade func(*T)) *Collection[T] {
	return &Collection[T]{
		kv:      kv,
		key:     key,
		name:    name,
		upgrade: upgrade,
		log:     logger.L().With("collection", name),
		subs:    make(map[int]func(Event[T])),
	}
}

func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) Key() string { return c.key }

// Subscribe registers fn for every change and returns a func that removes it.
// fn runs synchronously after the change is persisted.
func (c *Collection[T]) Subscribe(fn func(Event[T])) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Collection[T]) notify(ev Event[T]) {
	ev.Collection = c.name
	c.subMu.RLock()
	fns := make([]func(Event[T]), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// load reads the slot. Absent, unreadable or invalid slots yield an empty list.
func (c *Collection[T]) load(ctx context.Context) []T {
	raw, err := c.kv.Get(ctx, c.key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.log.Warn("slot read failed", "key", c.key, "err", err)
			metrics.StoreFailuresTotal.WithLabelValues("read").Inc()
		}
		return []T{}
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		c.log.Warn("slot holds invalid JSON", "key", c.key, "err", err)
		metrics.StoreFailuresTotal.WithLabelValues("decode").Inc()
		return []T{}
	}
	if items == nil {
		items = []T{}
	}
	if c.upgrade != nil {
		for i := range items {
			c.upgrade(&items[i])
		}
	}
	return items
}

func (c *Collection[T]) save(ctx context.Context, items []T) {
	raw, err := json.Marshal(items)
	if err != nil {
		c.log.Warn("slot encode failed", "key", c.key, "err", err)
		metrics.StoreFailuresTotal.WithLabelValues("encode").Inc()
		return
	}
	if err := c.kv.Put(ctx, c.key, raw); err != nil {
		c.log.Warn("slot write failed", "key", c.key, "err", err)
		metrics.StoreFailuresTotal.WithLabelValues("write").Inc()
	}
}

// List returns the records, newest first. Never nil.
func (c *Collection[T]) List(ctx context.Context) []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		c.cache = c.load(ctx)
		c.loaded = true
	}
	out := make([]T, len(c.cache))
	copy(out, c.cache)
	return out
}

// Reload drops the cached list and reads the slot again.
func (c *Collection[T]) Reload(ctx context.Context) []T {
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()
	return c.List(ctx)
}

// Get finds a record by id.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, bool) {
	for _, r := range c.List(ctx) {
		if r.RecordID() == id {
			return r, true
		}
	}
	var zero T
	return zero, false
}

// Create prepends rec.
func (c *Collection[T]) Create(ctx context.Context, rec T) T {
	rec, _ = c.CreateIf(ctx, rec, func([]T) error { return nil })
	return rec
}

// CreateIf prepends rec unless check, run on the current list under the same
// lock as the write, returns an error.
func (c *Collection[T]) CreateIf(ctx context.Context, rec T, check func([]T) error) (T, error) {
	c.mu.Lock()
	items := c.load(ctx)
	if err := check(items); err != nil {
		c.cache, c.loaded = items, true
		c.mu.Unlock()
		var zero T
		return zero, err
	}
	items = append([]T{rec}, items...)
	c.save(ctx, items)
	c.cache, c.loaded = items, true
	c.mu.Unlock()

	metrics.RecordsCreatedTotal.WithLabelValues(c.name).Inc()
	c.notify(Event[T]{Kind: EventCreated, ID: rec.RecordID(), Record: rec})
	return rec, nil
}

// Update applies fn to the record with the given id and rewrites the slot.
// It reports false, writing nothing, when no record matches.
func (c *Collection[T]) Update(ctx context.Context, id string, fn func(*T)) (T, bool) {
	c.mu.Lock()
	items := c.load(ctx)
	idx := -1
	for i := range items {
		if items[i].RecordID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.cache, c.loaded = items, true
		c.mu.Unlock()
		var zero T
		return zero, false
	}
	fn(&items[idx])
	updated := items[idx]
	c.save(ctx, items)
	c.cache, c.loaded = items, true
	c.mu.Unlock()

	c.notify(Event[T]{Kind: EventUpdated, ID: id, Record: updated})
	return updated, true
}

// Remove filters out the record with the given id.
func (c *Collection[T]) Remove(ctx context.Context, id string) bool {
	c.mu.Lock()
	items := c.load(ctx)
	kept := make([]T, 0, len(items))
	var removed T
	found := false
	for _, r := range items {
		if r.RecordID() == id {
			removed, found = r, true
			continue
		}
		kept = append(kept, r)
	}
	if found {
		c.save(ctx, kept)
	}
	c.cache, c.loaded = kept, true
	c.mu.Unlock()

	if found {
		c.notify(Event[T]{Kind: EventRemoved, ID: id, Record: removed})
	}
	return found
}

// Replace overwrites the whole list.
func (c *Collection[T]) Replace(ctx context.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	c.mu.Lock()
	c.save(ctx, items)
	c.cache = make([]T, len(items))
	copy(c.cache, items)
	c.loaded = true
	c.mu.Unlock()

	c.notify(Event[T]{Kind: EventReplaced})
}

// NewID returns a creation-time id with a random suffix.
func NewID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + uuid.NewString()[:8]
}

// Filter keeps the records for which keep returns true. Never nil.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// MatchQuery reports whether q is a case-insensitive substring of any field.
// An empty query matches everything.
func MatchQuery(q string, fields ...string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
