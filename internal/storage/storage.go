package storage

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Storage keys
const (
	keyConfig   = "config"
	keyCachePfx = "cache/" // + 8-byte big-endian zobrist key
)

// Bound mirrors the transposition table's node-type classification, stored
// alongside a cached score so a later process can tell whether it was an
// exact value or a search-window bound.
type Bound int

const (
	BoundExact Bound = iota
	BoundLower
	BoundUpper
)

// EngineConfig holds the UCI-configurable settings worth remembering
// between process runs: hash size, evaluation mode and eval file path.
type EngineConfig struct {
	HashMB      int       `json:"hash_mb"`
	UseNNUE     bool      `json:"use_nnue"`
	EvalFile    string    `json:"eval_file"`
	LastUpdated time.Time `json:"last_updated"`
}

// DefaultConfig returns the engine's built-in defaults.
func DefaultConfig() *EngineConfig {
	return &EngineConfig{
		HashMB:      64,
		UseNNUE:     false,
		LastUpdated: time.Now(),
	}
}

// CacheEntry is a disk-backed mirror of one transposition table slot,
// keyed by the position's Zobrist hash. It lets a fresh process warm-start
// its in-memory table for positions it has already analyzed, without being
// an opening book: there is no curated move-weight data here, only search
// results this engine itself produced.
type CacheEntry struct {
	Depth int       `json:"depth"`
	Score int       `json:"score"`
	Bound Bound     `json:"bound"`
	Best  uint16    `json:"best"` // packed board.Move
	Stamp time.Time `json:"stamp"`
}

// Store wraps BadgerDB for engine configuration and the analysis cache.
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) the on-disk store.
func Open() (*Store, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LoadConfig loads saved engine configuration, falling back to defaults.
func (s *Store) LoadConfig() (*EngineConfig, error) {
	cfg := DefaultConfig()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyConfig))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, cfg)
		})
	})

	return cfg, err
}

// SaveConfig persists engine configuration.
func (s *Store) SaveConfig(cfg *EngineConfig) error {
	cfg.LastUpdated = time.Now()

	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyConfig), data)
	})
}

func cacheKey(zobrist uint64) []byte {
	key := make([]byte, len(keyCachePfx)+8)
	copy(key, keyCachePfx)
	binary.BigEndian.PutUint64(key[len(keyCachePfx):], zobrist)
	return key
}

// PutCache stores (or overwrites) a cached analysis result for a position.
func (s *Store) PutCache(zobrist uint64, entry CacheEntry) error {
	entry.Stamp = time.Now()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(zobrist), data)
	})
}

// GetCache retrieves a cached analysis result, if present.
func (s *Store) GetCache(zobrist uint64) (CacheEntry, bool, error) {
	var entry CacheEntry
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(zobrist))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})

	return entry, found, err
}
