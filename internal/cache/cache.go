package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

// Status is the freshness of an entry.
type Status int

const (
	StatusFresh Status = iota
	StatusStale
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusFresh:
		return "fresh"
	case StatusStale:
		return "stale"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Entry is what the cache holds for a key. Err is set when Status is StatusError;
// Data then still holds whatever was last fetched successfully.
type Entry struct {
	Data      any
	FetchedAt time.Time
	Status    Status
	Err       error
}

// Op names a change to the cache.
type Op int

const (
	OpWrite Op = iota
	OpInvalidate
	OpRemove
	OpClear
	OpFetched
	OpFetchFailed
)

// Event is delivered to subscribers after a change. Key is empty for OpClear.
type Event struct {
	Key Key
	Op  Op
}

// Fetcher loads the authoritative value for a key.
type Fetcher func(ctx context.Context) (any, error)

// Options configure a Cache.
type Options struct {
	// StaleAfter ages fresh entries into stale ones. Zero disables ageing.
	StaleAfter time.Duration
	// GCAfter evicts entries nobody has read for this long. Zero keeps them.
	GCAfter time.Duration
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Cache is a keyed, invalidation-driven cache of server resources. Reads of
// the same key share one in-flight fetch. Every Write, Invalidate, Remove and
// Clear starts a new generation for the affected keys: a fetch begun in an
// older generation is neither joined by later readers nor allowed to
// overwrite the newer state when it completes.
type Cache struct {
	entries *ttlcache.Cache[Key, Entry]
	group   singleflight.Group

	staleAfter time.Duration
	now        func() time.Time

	mu    sync.Mutex
	epoch uint64
	gens  map[Key]uint64

	subsMu  sync.Mutex
	subs    map[int]func(Event)
	nextSub int

	closeOnce sync.Once
}

// New creates a cache and starts its expiry loop. Call Close when done.
func New(opts Options) *Cache {
	gcAfter := opts.GCAfter
	if gcAfter <= 0 {
		gcAfter = ttlcache.NoTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Cache{
		entries:    ttlcache.New[Key, Entry](ttlcache.WithTTL[Key, Entry](gcAfter)),
		staleAfter: opts.StaleAfter,
		now:        now,
		gens:       make(map[Key]uint64),
		subs:       make(map[int]func(Event)),
	}
	go c.entries.Start()
	return c
}

// Close stops the expiry loop.
func (c *Cache) Close() {
	c.closeOnce.Do(c.entries.Stop)
}

// Read returns fresh data for key without suspending, or runs fetch and
// caches its result. Concurrent reads share a single fetch. If ctx ends
// first Read returns ctx.Err(), but the fetch keeps running and still
// populates the cache for other readers.
func (c *Cache) Read(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	if entry, ok := c.fresh(key); ok {
		return entry.Data, nil
	}

	token := c.token(key)
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(token, func() (any, error) {
		glog.V(2).Infof("cache: fetch %s", token)
		data, err := fetch(fetchCtx)
		c.complete(key, token, data, err)
		return data, err
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Refetch invalidates key and reads it again.
func (c *Cache) Refetch(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	c.Invalidate(key)
	return c.Read(ctx, key, fetch)
}

// Invalidate marks key stale; the next Read fetches again.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	c.bumpLocked(key)
	if item := c.entries.Get(key); item != nil {
		entry := item.Value()
		if entry.Status == StatusFresh {
			entry.Status = StatusStale
		}
		c.entries.Set(key, entry, ttlcache.DefaultTTL)
	}
	c.mu.Unlock()

	c.emit(Event{Key: key, Op: OpInvalidate})
}

// Write seeds key with authoritative data, typically a mutation response.
func (c *Cache) Write(key Key, data any) {
	c.mu.Lock()
	c.bumpLocked(key)
	c.entries.Set(key, Entry{Data: data, FetchedAt: c.now(), Status: StatusFresh}, ttlcache.DefaultTTL)
	c.mu.Unlock()

	c.emit(Event{Key: key, Op: OpWrite})
}

// Remove drops key entirely.
func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	c.bumpLocked(key)
	c.entries.Delete(key)
	c.mu.Unlock()

	c.emit(Event{Key: key, Op: OpRemove})
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.epoch++
	c.gens = make(map[Key]uint64)
	c.entries.DeleteAll()
	c.mu.Unlock()

	c.emit(Event{Op: OpClear})
}

// Peek returns the entry for key, if any, without fetching.
func (c *Cache) Peek(key Key) (Entry, bool) {
	item := c.entries.Get(key)
	if item == nil {
		return Entry{}, false
	}
	return c.aged(item.Value()), true
}

// Len reports the number of entries held.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Subscribe registers fn for change events and returns a function that
// unregisters it. fn runs on the goroutine that made the change.
func (c *Cache) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subsMu.Unlock()

	return func() {
		c.subsMu.Lock()
		delete(c.subs, id)
		c.subsMu.Unlock()
	}
}

func (c *Cache) fresh(key Key) (Entry, bool) {
	item := c.entries.Get(key)
	if item == nil {
		return Entry{}, false
	}
	entry := c.aged(item.Value())
	return entry, entry.Status == StatusFresh
}

func (c *Cache) aged(entry Entry) Entry {
	if entry.Status == StatusFresh && c.staleAfter > 0 && c.now().Sub(entry.FetchedAt) >= c.staleAfter {
		entry.Status = StatusStale
	}
	return entry
}

func (c *Cache) token(key Key) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokenLocked(key)
}

func (c *Cache) tokenLocked(key Key) string {
	return fmt.Sprintf("%s@%d.%d", key, c.epoch, c.gens[key])
}

func (c *Cache) bumpLocked(key Key) {
	c.gens[key]++
}

func (c *Cache) complete(key Key, token string, data any, err error) {
	c.mu.Lock()
	if c.tokenLocked(key) != token {
		c.mu.Unlock()
		glog.V(2).Infof("cache: dropping superseded fetch %s", token)
		return
	}

	op := OpFetched
	if err != nil {
		op = OpFetchFailed
		entry := Entry{Status: StatusError, Err: err}
		if item := c.entries.Get(key); item != nil {
			prev := item.Value()
			entry.Data = prev.Data
			entry.FetchedAt = prev.FetchedAt
		}
		c.entries.Set(key, entry, ttlcache.DefaultTTL)
	} else {
		c.entries.Set(key, Entry{Data: data, FetchedAt: c.now(), Status: StatusFresh}, ttlcache.DefaultTTL)
	}
	c.mu.Unlock()

	c.emit(Event{Key: key, Op: op})
}

func (c *Cache) emit(ev Event) {
	c.subsMu.Lock()
	fns := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subsMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Get is a typed Read.
func Get[T any](ctx context.Context, c *Cache, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	data, err := c.Read(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, ok := data.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: %s holds %T, not %T", key, data, zero)
	}
	return out, nil
}
