package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Loader computes the value for a key on a miss.
type Loader[T any] func(ctx context.Context) (T, error)

// Loading fronts a Cache so that concurrent misses for one key run the
// loader once. Values are only stored when the loader succeeds.
type Loading[T any] struct {
	cache Cache[T]
	group singleflight.Group
	// gen is bumped by Invalidate so that a load started before the
	// invalidation does not repopulate the cache with stale data.
	mu  sync.Mutex
	gen map[string]uint64
}

// NewLoading wraps c.
func NewLoading[T any](c Cache[T]) *Loading[T] {
	return &Loading[T]{cache: c, gen: make(map[string]uint64)}
}

// Get returns the cached value for key or loads it. hit is true only when
// the value came from the cache; callers that joined a load already in
// flight report a miss.
func (l *Loading[T]) Get(ctx context.Context, key string, load Loader[T]) (v T, hit bool, err error) {
	if v, ok := l.cache.Get(key); ok {
		return v, true, nil
	}
	gen := l.generation(key)
	res, err, _ := l.group.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		if l.generation(key) == gen {
			l.cache.Set(key, v)
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return res.(T), false, nil
}

// Invalidate drops key and discards any load in flight for it.
func (l *Loading[T]) Invalidate(key string) {
	l.mu.Lock()
	l.gen[key]++
	l.mu.Unlock()
	l.group.Forget(key)
	l.cache.Delete(key)
}

func (l *Loading[T]) generation(key string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen[key]
}

// Manager handles cache lifecycle and cleanup
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	stopOnce    sync.Once
	started     bool
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// NewManager creates a new cache manager
func NewManager() *Manager {
	return &Manager{
		caches:      make([]Cleaner, 0),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup. It must be called before
// StartCleanup.
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			totalCleaned := 0
			for _, cache := range m.caches {
				totalCleaned += cache.CleanExpired()
			}
			if totalCleaned > 0 {
				slog.Debug("Expired cache entries removed", "count", totalCleaned)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine. It is safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
		if m.started {
			<-m.cleanupDone
		}
	})
}
