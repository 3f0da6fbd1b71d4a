package storage

import (
	"os"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.HashMB != 64 {
		t.Errorf("expected default hash of 64MB, got %d", cfg.HashMB)
	}
	if cfg.UseNNUE {
		t.Errorf("expected NNUE disabled by default")
	}
}

func TestStoreConfigRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmpDir)

	store, err := Open()
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	cfg := DefaultConfig()
	cfg.HashMB = 256
	cfg.UseNNUE = true
	cfg.EvalFile = "net.nnue"

	if err := store.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := store.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.HashMB != 256 || !loaded.UseNNUE || loaded.EvalFile != "net.nnue" {
		t.Errorf("loaded config mismatch: %+v", loaded)
	}
}

func TestStoreCacheRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmpDir)

	store, err := Open()
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	var key uint64 = 0xDEADBEEFCAFEBABE

	if _, found, err := store.GetCache(key); err != nil || found {
		t.Fatalf("expected no cache entry yet, found=%v err=%v", found, err)
	}

	entry := CacheEntry{Depth: 12, Score: 35, Bound: BoundExact, Best: 0x1234}
	if err := store.PutCache(key, entry); err != nil {
		t.Fatalf("PutCache failed: %v", err)
	}

	got, found, err := store.GetCache(key)
	if err != nil || !found {
		t.Fatalf("expected cache hit, found=%v err=%v", found, err)
	}
	if got.Depth != 12 || got.Score != 35 || got.Bound != BoundExact || got.Best != 0x1234 {
		t.Errorf("cache entry mismatch: %+v", got)
	}
}

func TestDataPaths(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmpDir)

	dataDir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if dataDir == "" {
		t.Error("GetDataDir returned empty path")
	}

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("data directory was not created: %s", dataDir)
	}
}
