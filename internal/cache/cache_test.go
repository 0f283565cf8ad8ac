package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[string](3, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Set("key4", "value4") // evicts key1

	if _, found := c.Get("key1"); found {
		t.Error("key1 should have been evicted")
	}
	for _, k := range []string{"key2", "key3", "key4"} {
		if _, found := c.Get(k); !found {
			t.Errorf("%s should still be cached", k)
		}
	}
	if c.Size() != 3 {
		t.Errorf("Size = %d, want 3", c.Size())
	}
}

func TestLRUCacheRecentlyUsedSurvives(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3) // evicts b, not a

	if _, found := c.Get("a"); !found {
		t.Error("a was used recently and should survive")
	}
	if _, found := c.Get("b"); found {
		t.Error("b should have been evicted")
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache[string](100, 50*time.Millisecond)
	c.Set("key1", "value1")

	if _, found := c.Get("key1"); !found {
		t.Fatal("key1 should be found immediately")
	}
	time.Sleep(60 * time.Millisecond)
	if _, found := c.Get("key1"); found {
		t.Error("key1 should have expired")
	}
}

func TestLRUCacheExpiryBoundary(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	now = now.Add(30 * time.Second)
	c.Set("b", 2)

	now = now.Add(30*time.Second - time.Nanosecond)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be live just before its expiry")
	}
	now = now.Add(time.Nanosecond)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired = %d, want 1", n)
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("b should still be live")
	}
}

func TestLRUCacheZeroTTLStoresNothing(t *testing.T) {
	c := NewLRUCache[string](10, 0)
	c.Set("k", "v")
	if _, found := c.Get("k"); found {
		t.Error("zero ttl should never hit")
	}
}

func TestLRUCacheCleanExpired(t *testing.T) {
	c := NewLRUCache[string](100, 50*time.Millisecond)
	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")

	time.Sleep(60 * time.Millisecond)

	if removed := c.CleanExpired(); removed != 3 {
		t.Errorf("Expected 3 items cleaned, got %d", removed)
	}
}

func TestLRUCacheClearAndDelete(t *testing.T) {
	c := NewLRUCache[string](10, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Delete("a")
	if _, found := c.Get("a"); found {
		t.Error("a should be deleted")
	}
	c.Clear()
	if c.Size() != 0 {
		t.Errorf("Size after Clear = %d", c.Size())
	}
}

func TestLoadingCachesSuccessfulLoads(t *testing.T) {
	l := NewLoading[int](NewLRUCache[int](10, time.Hour))
	var calls atomic.Int32
	load := func(context.Context) (int, error) {
		calls.Add(1)
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, _, err := l.Get(context.Background(), "k", load)
		if err != nil || v != 42 {
			t.Fatalf("Get = %d, %v", v, err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("loader calls = %d, want 1", calls.Load())
	}

	l.Invalidate("k")
	if _, _, err := l.Get(context.Background(), "k", load); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("loader calls after invalidate = %d, want 2", calls.Load())
	}
}

func TestLoadingDoesNotCacheErrors(t *testing.T) {
	l := NewLoading[int](NewLRUCache[int](10, time.Hour))
	boom := errors.New("boom")
	if _, _, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	v, _, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Errorf("Get after error = %d, %v", v, err)
	}
}

func TestLoadingCollapsesConcurrentMisses(t *testing.T) {
	l := NewLoading[int](NewLRUCache[int](10, time.Hour))
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 1, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = l.Get(context.Background(), "k", load)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("loader calls = %d, want 1", calls.Load())
	}
}

func TestLoadingReportsHits(t *testing.T) {
	l := NewLoading[int](NewLRUCache[int](10, time.Hour))
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		<-release
		return 1, nil
	}

	var (
		wg   sync.WaitGroup
		hits atomic.Int32
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, hit, _ := l.Get(context.Background(), "k", load); hit {
				hits.Add(1)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	if hits.Load() != 0 {
		t.Errorf("hits while loading = %d, want 0", hits.Load())
	}

	if _, hit, _ := l.Get(context.Background(), "k", load); !hit {
		t.Error("expected a hit once the value is cached")
	}
}

func TestLoadingInvalidateDuringLoad(t *testing.T) {
	l := NewLoading[int](NewLRUCache[int](10, time.Hour))
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _, _ = l.Get(context.Background(), "k", func(context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started
	l.Invalidate("k")
	close(release)
	<-done

	v, _, _ := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 2, nil })
	if v != 2 {
		t.Errorf("stale value served after invalidate: %d", v)
	}
}

func TestManagerCleansRegisteredCaches(t *testing.T) {
	c := NewLRUCache[string](10, 10*time.Millisecond)
	c.Set("a", "1")

	m := NewManager()
	m.Register(c)
	m.StartCleanup(5 * time.Millisecond)
	defer m.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		n := len(c.items)
		c.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("expired entry was never cleaned")
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager()
	m.Stop()
	m.Stop()
}

func BenchmarkLRUCache(b *testing.B) {
	c := NewLRUCache[[]int](1000, time.Hour)
	v := make([]int, 12)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%10 == 0 {
			c.Set("bench-key", v)
		} else {
			c.Get("bench-key")
		}
	}
}
