package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bjarke-xyz/fmh/internal/config"
	"github.com/bjarke-xyz/fmh/internal/repository/db"
)

type cacheRow struct {
	Value     []byte `db:"v"`
	ExpiresAt int64  `db:"expires_at"`
}

// cacheStore keeps encoded values in the cache table so they survive a
// restart. Expiry is stored as unix seconds.
type cacheStore struct {
	cfg *config.Config
	now func() time.Time
}

func (s *cacheStore) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	db, err := db.Open(s.cfg)
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(ttl).Unix()
	_, err = db.ExecContext(ctx, "INSERT INTO cache (k, v, expires_at) VALUES (?, ?, ?) "+
		"ON CONFLICT (k) DO UPDATE SET v = excluded.v, expires_at = excluded.expires_at", key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("error storing cache key %v: %w", key, err)
	}
	return nil
}

// get returns the value and how long it stays valid. Expired rows count as
// missing.
func (s *cacheStore) get(ctx context.Context, key string) ([]byte, time.Duration, bool, error) {
	db, err := db.Open(s.cfg)
	if err != nil {
		return nil, 0, false, err
	}
	now := s.now()
	var row cacheRow
	err = db.GetContext(ctx, &row, "SELECT v, expires_at FROM cache WHERE k = ? AND expires_at > ?", key, now.Unix())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("error reading cache key %v: %w", key, err)
	}
	return row.Value, time.Unix(row.ExpiresAt, 0).Sub(now), true, nil
}

func (s *cacheStore) deletePrefix(ctx context.Context, prefix string) error {
	db, err := db.Open(s.cfg)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM cache WHERE k LIKE ? || '%'", prefix); err != nil {
		return fmt.Errorf("error deleting cache keys with prefix %v: %w", prefix, err)
	}
	return nil
}

func (s *cacheStore) deleteExpired(ctx context.Context) (int64, error) {
	db, err := db.Open(s.cfg)
	if err != nil {
		return 0, err
	}
	result, err := db.ExecContext(ctx, "DELETE FROM cache WHERE expires_at <= ?", s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("error deleting expired cache keys: %w", err)
	}
	return result.RowsAffected()
}
