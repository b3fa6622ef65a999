package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/channelsync/internal/cache"
)

func TestExpiring_SetGet(t *testing.T) {
	c := cache.New[string, int]("test-basic")

	c.Set("a", 1, time.Minute)
	got, ok := c.Get("a")
	if !ok || got != 1 {
		t.Fatalf("expected (1, true), got (%d, %v)", got, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

// Чтение после истечения TTL — промах даже без фонового sweep.
func TestExpiring_LazyExpiry(t *testing.T) {
	c := cache.New[string, string]("test-lazy")

	c.Set("k", "v", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected expired entry to behave as a miss")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry to be evicted on read, len=%d", c.Len())
	}
}

func TestExpiring_SweepOnce(t *testing.T) {
	c := cache.New[int, string]("test-sweep")

	c.Set(1, "short", 5*time.Millisecond)
	c.Set(2, "long", time.Minute)
	time.Sleep(10 * time.Millisecond)

	removed := c.SweepOnce(time.Now())
	if removed != 1 {
		t.Fatalf("expected 1 evicted entry, got %d", removed)
	}
	if _, ok := c.Get(2); !ok {
		t.Fatal("live entry must survive the sweep")
	}
}

func TestExpiring_DeleteClear(t *testing.T) {
	c := cache.New[string, int]("test-delete")

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected deleted key to miss")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after Clear, len=%d", c.Len())
	}
}

// Кеш должен выдерживать конкурентные чтения и записи.
func TestExpiring_ConcurrentAccess(t *testing.T) {
	c := cache.New[int, int]("test-concurrent")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := j % 10
				c.Set(key, worker, time.Millisecond)
				c.Get(key)
				if j%50 == 0 {
					c.SweepOnce(time.Now())
				}
			}
		}(i)
	}
	wg.Wait()
}

// Перезапись обновляет TTL: свежая запись не должна удаляться по старому сроку.
func TestExpiring_OverwriteRefreshesTTL(t *testing.T) {
	c := cache.New[string, int]("test-overwrite")

	c.Set("k", 1, 5*time.Millisecond)
	c.Set("k", 2, time.Minute)
	time.Sleep(10 * time.Millisecond)

	got, ok := c.Get("k")
	if !ok || got != 2 {
		t.Fatalf("expected refreshed entry (2, true), got (%d, %v)", got, ok)
	}
}
