package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ixra/ixra-api/internal/core"
)

// GetRateLimit returns stored rate limit state for a client key.
func (s *Store) GetRateLimit(ctx context.Context, key string) (*core.RateLimitEntry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("rate limit key is required")
	}

	var (
		requestCount int
		resetAt      int64
	)

	row := s.DB.QueryRowContext(ctx, s.rebind(`
		SELECT request_count, reset_at
		FROM rate_limits
		WHERE rl_key = ?
	`), key)

	if err := row.Scan(&requestCount, &resetAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch rate limit: %w", err)
	}

	return &core.RateLimitEntry{
		Count:   requestCount,
		ResetAt: time.UnixMilli(resetAt).UTC(),
	}, nil
}

// UpdateRateLimit persists rate limit state for a client key.
func (s *Store) UpdateRateLimit(ctx context.Context, key string, entry *core.RateLimitEntry) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("rate limit key is required")
	}
	if entry == nil {
		return errors.New("rate limit entry is required")
	}

	_, err := s.DB.ExecContext(ctx, s.rebind(`
		INSERT INTO rate_limits (rl_key, request_count, reset_at)
		VALUES (?, ?, ?)
		ON CONFLICT(rl_key) DO UPDATE SET
			request_count = excluded.request_count,
			reset_at = excluded.reset_at
	`), key, entry.Count, entry.ResetAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("store rate limit: %w", err)
	}

	return nil
}

// SweepRateLimits deletes entries whose window closed before now.
func (s *Store) SweepRateLimits(ctx context.Context, now time.Time) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, s.rebind(`
		DELETE FROM rate_limits
		WHERE reset_at < ?
	`), now.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sweep rate limits: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep rate limits: %w", err)
	}
	return affected, nil
}
