package storage

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/conorfennell/idiomas/internal/assetcache"
)

func newTestCacheStore(t *testing.T) *CacheStore {
	t.Helper()
	s, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenCache() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(key, body string) assetcache.Entry {
	return assetcache.Entry{
		Key:    key,
		Method: http.MethodGet,
		URL:    "http://localhost/" + key,
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{"text/plain"}},
		Body:   []byte(body),
	}
}

func TestCacheStoreGetMissing(t *testing.T) {
	s := newTestCacheStore(t)
	e, err := s.Get(context.Background(), "v1", "nope")
	if err != nil {
		t.Fatalf("Get() returned an unexpected error: %v", err)
	}
	if e != nil {
		t.Errorf("Expected nil entry, but got %+v", e)
	}
}

func TestCacheStorePutAllAndGet(t *testing.T) {
	s := newTestCacheStore(t)
	ctx := context.Background()

	if err := s.PutAll(ctx, "v1", []assetcache.Entry{entry("a", "alpha"), entry("b", "beta")}); err != nil {
		t.Fatalf("PutAll() returned an unexpected error: %v", err)
	}

	e, err := s.Get(ctx, "v1", "b")
	if err != nil || e == nil {
		t.Fatalf("Expected entry b, got %v (err %v)", e, err)
	}
	if string(e.Body) != "beta" {
		t.Errorf("Expected body 'beta', but got '%s'", e.Body)
	}
	if e.Header.Get("Content-Type") != "text/plain" {
		t.Errorf("Expected headers to round trip, got %v", e.Header)
	}

	t.Run("put overwrites", func(t *testing.T) {
		if err := s.Put(ctx, "v1", entry("a", "again")); err != nil {
			t.Fatalf("Put() returned an unexpected error: %v", err)
		}
		e, _ := s.Get(ctx, "v1", "a")
		if e == nil || string(e.Body) != "again" {
			t.Errorf("Expected overwritten body, got %v", e)
		}
	})
}

func TestCacheStoreDeleteGeneration(t *testing.T) {
	s := newTestCacheStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "v1", entry("a", "old")); err != nil {
		t.Fatalf("Put(v1) returned an unexpected error: %v", err)
	}
	if err := s.Put(ctx, "v2", entry("a", "new")); err != nil {
		t.Fatalf("Put(v2) returned an unexpected error: %v", err)
	}

	gens, err := s.Generations(ctx)
	if err != nil {
		t.Fatalf("Generations() returned an unexpected error: %v", err)
	}
	if len(gens) != 2 {
		t.Fatalf("Expected 2 generations, but got %v", gens)
	}

	if err := s.DeleteGeneration(ctx, "v1"); err != nil {
		t.Fatalf("DeleteGeneration() returned an unexpected error: %v", err)
	}
	if e, _ := s.Get(ctx, "v1", "a"); e != nil {
		t.Error("Expected v1 entry to be gone")
	}
	if e, _ := s.Get(ctx, "v2", "a"); e == nil {
		t.Error("Expected v2 entry to survive")
	}
	gens, _ = s.Generations(ctx)
	if len(gens) != 1 || gens[0] != "v2" {
		t.Errorf("Expected only v2, but got %v", gens)
	}
}
