package cache

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestRistrettoCache(t *testing.T) {
	cacheInterface, err := NewRistrettoCache(&RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer cacheInterface.Close()

	cache := cacheInterface.(*RistrettoCache)

	t.Run("set-and-get", func(t *testing.T) {
		success := cache.Set("history:recent:100", "payload", time.Hour)
		if !success {
			t.Error("expected Set to succeed")
		}

		cache.Wait()

		retrieved, found := cache.Get("history:recent:100")
		if !found {
			t.Error("expected key to be found")
		}
		if retrieved != "payload" {
			t.Errorf("expected %q, got %q", "payload", retrieved)
		}
	})

	t.Run("get-missing-key", func(t *testing.T) {
		_, found := cache.Get("nonexistent")
		if found {
			t.Error("expected key to not be found")
		}
	})

	t.Run("delete", func(t *testing.T) {
		cache.Set("delete-test", "value", time.Hour)
		cache.Wait()

		_, found := cache.Get("delete-test")
		if !found {
			t.Error("expected key to exist before delete")
		}

		cache.Delete("delete-test")

		_, found = cache.Get("delete-test")
		if found {
			t.Error("expected key to be deleted")
		}
	})

	t.Run("ttl-expiration", func(t *testing.T) {
		cache.Set("ttl-test", "value", 200*time.Millisecond)
		cache.Wait()

		_, found := cache.Get("ttl-test")
		if !found {
			t.Error("expected key to exist before TTL expires")
		}

		time.Sleep(300 * time.Millisecond)

		_, found = cache.Get("ttl-test")
		if found {
			t.Error("expected key to be expired after TTL")
		}
	})

	t.Run("clear", func(t *testing.T) {
		cache.Set("clear-key1", "value1", time.Hour)
		cache.Set("clear-key2", "value2", time.Hour)
		cache.Wait()

		_, found1 := cache.Get("clear-key1")
		_, found2 := cache.Get("clear-key2")
		if !found1 || !found2 {
			t.Skip("keys not admitted by probabilistic admission")
		}

		cache.Clear()

		_, found1 = cache.Get("clear-key1")
		_, found2 = cache.Get("clear-key2")
		if found1 || found2 {
			t.Error("expected all keys to be cleared")
		}
	})
}
