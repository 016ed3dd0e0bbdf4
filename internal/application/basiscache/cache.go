// Package basiscache memoizes real spherical-harmonics basis sets per
// (dpi, max_l). Recently used sets live in a bounded in-memory table and are
// persisted through a BlobStore so later processes can reuse them.
package basiscache

import (
	"container/list"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/BlackCockder/IBEX-Mapper/internal/domain/harmonics"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/prometheus"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// KeySuffix ends every blob key written by the cache.
const KeySuffix = ".basis"

// Key returns the blob key for a (dpi, max_l) pair.
func Key(dpi, maxL int) string {
	return fmt.Sprintf("DPI%dL%d%s", dpi, maxL, KeySuffix)
}

// BasisEvaluator computes a full basis set.
type BasisEvaluator interface {
	EvaluateBasis(ctx context.Context, dpi, maxL int) (*harmonics.BasisSet, error)
}

// Cache is safe for concurrent use. Concurrent misses on the same key share
// a single evaluation.
type Cache struct {
	store     BlobStore
	evaluator BasisEvaluator
	logger    logging.Logger
	metrics   *prometheus.MapperMetrics
	workers   int

	mu         sync.Mutex
	maxEntries int
	entries    map[string]*list.Element
	recent     *list.List // front is most recently used
	group      singleflight.Group
}

type entry struct {
	key string
	set *harmonics.BasisSet
}

// DefaultMaxEntries bounds the in-memory table when WithMaxEntries is not given.
const DefaultMaxEntries = 4

// Option configures a Cache.
type Option func(*Cache)

func WithEvaluator(e BasisEvaluator) Option {
	return func(c *Cache) { c.evaluator = e }
}

// WithWorkers bounds the per-degree parallelism of the default evaluator.
// It has no effect together with WithEvaluator.
func WithWorkers(n int) Option {
	return func(c *Cache) { c.workers = n }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

func WithMetrics(m *prometheus.MapperMetrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithMaxEntries bounds how many basis sets stay in memory. The least
// recently used set is dropped first; it remains available from the store.
// n ≤ 0 keeps DefaultMaxEntries.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// New returns a Cache over store. A nil store keeps blobs in memory only.
func New(store BlobStore, opts ...Option) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Cache{
		store:      store,
		maxEntries: DefaultMaxEntries,
		entries:    make(map[string]*list.Element),
		recent:     list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNopLogger()
	}
	c.logger = c.logger.Named("basiscache").With(logging.String("backend", store.Name()))
	if c.metrics == nil {
		c.metrics = prometheus.NewNoopMetrics()
	}
	if c.evaluator == nil {
		c.evaluator = harmonics.NewEvaluator(
			harmonics.WithWorkers(c.workers),
			harmonics.WithProgress(c.progressLogger()),
		)
	}
	return c
}

// Get returns the basis set for (dpi, maxL), evaluating and persisting it on
// a miss. The returned set is shared and must not be modified; callers take
// the leading elements they need with Truncate.
func (c *Cache) Get(ctx context.Context, dpi, maxL int) (*harmonics.BasisSet, error) {
	if err := harmonics.ValidateDimensions(dpi, maxL); err != nil {
		return nil, err
	}
	key := Key(dpi, maxL)

	if set := c.lookup(key); set != nil {
		prometheus.RecordCacheLookup(c.metrics, prometheus.CacheHit)
		return set, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeCancelled, "basis lookup cancelled")
	}
	// The load is shared by every caller waiting on key, so it must outlive
	// any single caller's cancellation.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.load(loadCtx, key, dpi, maxL)
	})
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.CodeCancelled, "basis lookup cancelled")
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			prometheus.RecordCacheLookup(c.metrics, prometheus.CacheShared)
		}
		return res.Val.(*harmonics.BasisSet), nil
	}
}

// Warm ensures the pair is cached and reports whether it had to be evaluated.
func (c *Cache) Warm(ctx context.Context, dpi, maxL int) (bool, error) {
	existed, err := c.Contains(ctx, dpi, maxL)
	if err != nil {
		return false, err
	}
	if _, err := c.Get(ctx, dpi, maxL); err != nil {
		return false, err
	}
	return !existed, nil
}

// Contains reports whether the pair is held in memory or in the store.
func (c *Cache) Contains(ctx context.Context, dpi, maxL int) (bool, error) {
	key := Key(dpi, maxL)
	if c.lookup(key) != nil {
		return true, nil
	}
	_, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.IsCode(err, errors.CodeBlobNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Keys lists the basis blobs held by the store.
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := keys[:0]
	for _, k := range keys {
		if strings.HasSuffix(k, KeySuffix) {
			out = append(out, k)
		}
	}
	return out, nil
}

// Clear drops every basis set from memory and from the store and returns the
// number of blobs removed.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	c.mu.Lock()
	c.entries = make(map[string]*list.Element)
	c.recent.Init()
	c.mu.Unlock()
	c.metrics.CacheEntries.WithLabelValues(c.store.Name()).Set(0)

	keys, err := c.Keys(ctx)
	if err != nil {
		return 0, err
	}
	for i, k := range keys {
		if err := c.store.Delete(ctx, k); err != nil {
			return i, err
		}
	}
	c.logger.Info("basis cache cleared", logging.Int("blobs", len(keys)))
	return len(keys), nil
}

// Len returns the number of basis sets held in memory.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recent.Len()
}

func (c *Cache) lookup(key string) *harmonics.BasisSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil
	}
	c.recent.MoveToFront(el)
	return el.Value.(*entry).set
}

func (c *Cache) remember(key string, set *harmonics.BasisSet) {
	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).set = set
		c.recent.MoveToFront(el)
	} else {
		c.entries[key] = c.recent.PushFront(&entry{key: key, set: set})
	}
	var evicted []string
	for c.recent.Len() > c.maxEntries {
		oldest := c.recent.Back()
		e := c.recent.Remove(oldest).(*entry)
		delete(c.entries, e.key)
		evicted = append(evicted, e.key)
	}
	n := c.recent.Len()
	c.mu.Unlock()

	c.metrics.CacheEntries.WithLabelValues(c.store.Name()).Set(float64(n))
	for _, k := range evicted {
		c.logger.Debug("basis evicted from memory", logging.String("key", k))
	}
}

// load runs once per key among concurrent callers.
func (c *Cache) load(ctx context.Context, key string, dpi, maxL int) (*harmonics.BasisSet, error) {
	if set := c.lookup(key); set != nil {
		prometheus.RecordCacheLookup(c.metrics, prometheus.CacheHit)
		return set, nil
	}
	log := c.logger.With(logging.String("key", key))

	if set, ok := c.fromStore(ctx, log, key, dpi, maxL); ok {
		prometheus.RecordCacheLookup(c.metrics, prometheus.CacheHit)
		c.remember(key, set)
		return set, nil
	}
	prometheus.RecordCacheLookup(c.metrics, prometheus.CacheMiss)

	log.Info("evaluating basis", logging.Int("dpi", dpi), logging.Int("max_l", maxL))
	start := time.Now()
	set, err := c.evaluator.EvaluateBasis(ctx, dpi, maxL)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	prometheus.RecordBasisEvaluation(c.metrics, dpi, maxL, elapsed)
	log.Info("basis evaluated", logging.Duration("elapsed", elapsed), logging.Int("elements", set.Len()))

	c.persist(ctx, log, key, set)
	c.remember(key, set)
	return set, nil
}

// fromStore reads and decodes a persisted set. Unreadable or corrupted blobs
// count as misses.
func (c *Cache) fromStore(ctx context.Context, log logging.Logger, key string, dpi, maxL int) (*harmonics.BasisSet, bool) {
	start := time.Now()
	data, err := c.store.Get(ctx, key)
	if errors.IsCode(err, errors.CodeBlobNotFound) {
		prometheus.RecordBlobOp(c.metrics, c.store.Name(), "get", time.Since(start), nil)
		return nil, false
	}
	prometheus.RecordBlobOp(c.metrics, c.store.Name(), "get", time.Since(start), err)
	if err != nil {
		log.Warn("basis blob unreadable, recomputing", logging.Err(err))
		return nil, false
	}

	set, err := DecodeBasis(data)
	if err == nil && (set.DPI != dpi || set.MaxL != maxL) {
		err = errors.New(errors.CodeCacheCorrupted, "blob does not match its key").
			WithDetailf("dpi=%d max_l=%d", set.DPI, set.MaxL)
	}
	if err != nil {
		prometheus.RecordCacheLookup(c.metrics, prometheus.CacheCorrupt)
		log.Warn("basis blob corrupted, recomputing", logging.Err(err))
		return nil, false
	}
	return set, true
}

// persist writes set to the store. Failures are logged; the in-memory copy
// still serves this process.
func (c *Cache) persist(ctx context.Context, log logging.Logger, key string, set *harmonics.BasisSet) {
	data, err := EncodeBasis(set)
	if err != nil {
		log.Warn("basis encode failed", logging.Err(err))
		return
	}
	start := time.Now()
	err = c.store.Put(ctx, key, data)
	prometheus.RecordBlobOp(c.metrics, c.store.Name(), "put", time.Since(start), err)
	if err != nil {
		log.Warn("basis persist failed", logging.Err(err))
		return
	}
	log.Debug("basis persisted", logging.Int("bytes", len(data)))
}

// progressLogger logs evaluation progress at Debug in 5% steps.
func (c *Cache) progressLogger() harmonics.ProgressFunc {
	var mu sync.Mutex
	last := -1
	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		pct := done * 100 / total
		if step := pct / 5; step != last {
			last = step
			c.logger.Debug("basis evaluation progress", logging.Int("percent", pct))
		}
	}
}
