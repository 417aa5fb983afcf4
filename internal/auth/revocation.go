// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/Danny-Lenko/story-pull-backend/internal/logging"
)

// RevocationStore records tokens that were logged out before expiry.
//
// IsRevoked must report store failures as errors; a failed lookup is never
// the same as "not revoked". Revoke with ttl <= 0 is a no-op.
type RevocationStore interface {
	IsRevoked(ctx context.Context, tokenKey string) (bool, error)
	Revoke(ctx context.Context, tokenKey string, ttl time.Duration) error
	CleanupExpired(ctx context.Context) (int, error)
	Close() error
}

// RevocationEntry is the stored marker for a revoked token.
type RevocationEntry struct {
	TokenKey  string    `json:"token_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

const revocationKeyPrefix = "revoked:"

// MemoryRevocationStore keeps revocations in process memory. Entries are
// lost on restart, which is acceptable for single-instance development
// setups only.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	closed  bool
	now     func() time.Time
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryRevocationStore) IsRevoked(ctx context.Context, tokenKey string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, ErrRevocationStoreClosed
	}
	expiresAt, ok := s.entries[tokenKey]
	if !ok {
		return false, nil
	}
	return s.now().Before(expiresAt), nil
}

func (s *MemoryRevocationStore) Revoke(ctx context.Context, tokenKey string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrRevocationStoreClosed
	}
	s.entries[tokenKey] = s.now().Add(ttl)
	return nil
}

func (s *MemoryRevocationStore) CleanupExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrRevocationStoreClosed
	}
	now := s.now()
	removed := 0
	for key, expiresAt := range s.entries {
		if !now.Before(expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryRevocationStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	return nil
}

// BadgerRevocationStore persists revocations in BadgerDB. Each entry is
// written with a Badger TTL equal to the token's remaining lifetime, so
// expired markers disappear without a sweep.
type BadgerRevocationStore struct {
	db     *badger.DB
	ownsDB bool

	mu     sync.RWMutex
	closed bool
}

// OpenBadgerRevocationStore opens (or creates) a Badger database at path.
// An empty path opens an in-memory database.
func OpenBadgerRevocationStore(path string) (*BadgerRevocationStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for revocations: %w", err)
	}
	return &BadgerRevocationStore{db: db, ownsDB: true}, nil
}

// NewBadgerRevocationStore uses an already open database. Close leaves
// the database open.
func NewBadgerRevocationStore(db *badger.DB) *BadgerRevocationStore {
	return &BadgerRevocationStore{db: db}
}

func badgerKey(tokenKey string) []byte {
	return []byte(revocationKeyPrefix + tokenKey)
}

func (s *BadgerRevocationStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrRevocationStoreClosed
	}
	return nil
}

func (s *BadgerRevocationStore) IsRevoked(ctx context.Context, tokenKey string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(tokenKey))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("lookup revocation: %w", err)
	}
}

func (s *BadgerRevocationStore) Revoke(ctx context.Context, tokenKey string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}

	// Badger stores expiry as whole Unix seconds, truncating. Round up so
	// the marker never disappears before the token does.
	ttl = ttl.Truncate(time.Second) + time.Second

	data, err := json.Marshal(RevocationEntry{TokenKey: tokenKey, ExpiresAt: time.Now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("marshal revocation: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(badgerKey(tokenKey), data).WithTTL(ttl))
	}); err != nil {
		return fmt.Errorf("store revocation: %w", err)
	}
	return nil
}

// CleanupExpired deletes markers whose recorded expiry passed but which
// Badger still returns (its TTL has one-second granularity), then runs
// value log GC.
func (s *BadgerRevocationStore) CleanupExpired(ctx context.Context) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	now := time.Now()
	removed := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(revocationKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		var expired [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			if ctx.Err() != nil {
				break
			}
			item := it.Item()
			var entry RevocationEntry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				continue
			}
			if !now.Before(entry.ExpiresAt) {
				expired = append(expired, item.KeyCopy(nil))
			}
		}
		for _, key := range expired {
			if err := txn.Delete(key); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cleanup revocations: %w", err)
	}

	if !s.db.Opts().InMemory {
		if gcErr := s.db.RunValueLogGC(0.5); gcErr != nil && !errors.Is(gcErr, badger.ErrNoRewrite) {
			logging.Debug().Err(gcErr).Msg("revocation value log GC skipped")
		}
	}
	return removed, nil
}

func (s *BadgerRevocationStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
