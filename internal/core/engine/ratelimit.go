package engine

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/ixra/ixra-api/internal/core"
)

// DefaultSweepInterval bounds how often expired entries are purged from the store.
const DefaultSweepInterval = 5 * time.Minute

const lockStripes = 64

var (
	// ErrEmptyIdentifier is returned when a check has no client identifier.
	ErrEmptyIdentifier = errors.New("rate limit identifier is required")
	// ErrInvalidLimit is returned for a non-positive window or request budget.
	ErrInvalidLimit = errors.New("rate limit requires a positive window and at least one request")
)

// RateLimit represents a fixed rate limit window.
type RateLimit struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// Validate rejects windows that can never admit a request.
func (l RateLimit) Validate() error {
	if l.RequestsPerWindow < 1 || l.WindowDuration <= 0 {
		return ErrInvalidLimit
	}
	return nil
}

// DefaultChatLimit is the per-client budget for the chat assistant.
var DefaultChatLimit = RateLimit{RequestsPerWindow: 20, WindowDuration: time.Hour}

// RateLimitStore stores rate limit state keyed by client identifier.
type RateLimitStore interface {
	GetRateLimit(ctx context.Context, key string) (*core.RateLimitEntry, error)
	UpdateRateLimit(ctx context.Context, key string, entry *core.RateLimitEntry) error
}

// RateLimitSweeper is implemented by stores that can purge expired entries in bulk.
type RateLimitSweeper interface {
	SweepRateLimits(ctx context.Context, now time.Time) (int64, error)
}

// RateLimiter enforces fixed-window quotas per client identifier.
//
// Check serialises read-check-increment per identifier inside the process.
// Stores shared between processes get no cross-process atomicity.
type RateLimiter struct {
	Store         RateLimitStore
	Clock         func() time.Time
	SweepInterval time.Duration

	locks     [lockStripes]sync.Mutex
	sweepMu   sync.Mutex
	lastSweep time.Time
}

// NewRateLimiter builds a limiter over the given store.
func NewRateLimiter(store RateLimitStore) *RateLimiter {
	return &RateLimiter{Store: store, SweepInterval: DefaultSweepInterval}
}

// Check counts one request for identifier against limit.
//
// When the store fails the request is admitted and the store error is
// returned alongside the admitting result so the caller can log it.
func (r *RateLimiter) Check(ctx context.Context, identifier string, limit RateLimit) (core.RateLimitResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return core.RateLimitResult{}, ErrEmptyIdentifier
	}
	if err := limit.Validate(); err != nil {
		return core.RateLimitResult{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := r.now()
	if r == nil || r.Store == nil {
		return freshWindow(limit, now), nil
	}

	r.maybeSweep(ctx, now)

	mu := r.lockFor(identifier)
	mu.Lock()
	defer mu.Unlock()

	entry, err := r.Store.GetRateLimit(ctx, identifier)
	if err != nil {
		return freshWindow(limit, now), fmt.Errorf("read rate limit: %w", err)
	}

	if entry.Expired(now) {
		result := freshWindow(limit, now)
		next := &core.RateLimitEntry{Count: 1, ResetAt: result.ResetAt}
		if err := r.Store.UpdateRateLimit(ctx, identifier, next); err != nil {
			return result, fmt.Errorf("write rate limit: %w", err)
		}
		return result, nil
	}

	entry.Count++
	if err := r.Store.UpdateRateLimit(ctx, identifier, entry); err != nil {
		return freshWindow(limit, now), fmt.Errorf("write rate limit: %w", err)
	}

	if entry.Count > limit.RequestsPerWindow {
		return core.RateLimitResult{Success: false, Remaining: 0, ResetAt: entry.ResetAt}, nil
	}

	return core.RateLimitResult{
		Success:   true,
		Remaining: limit.RequestsPerWindow - entry.Count,
		ResetAt:   entry.ResetAt,
	}, nil
}

// Sweep purges expired entries immediately when the store supports it.
func (r *RateLimiter) Sweep(ctx context.Context) (int64, error) {
	if r == nil || r.Store == nil {
		return 0, nil
	}
	sweeper, ok := r.Store.(RateLimitSweeper)
	if !ok {
		return 0, nil
	}
	now := r.now()
	r.sweepMu.Lock()
	r.lastSweep = now
	r.sweepMu.Unlock()
	return sweeper.SweepRateLimits(ctx, now)
}

func (r *RateLimiter) maybeSweep(ctx context.Context, now time.Time) {
	sweeper, ok := r.Store.(RateLimitSweeper)
	if !ok {
		return
	}

	interval := r.SweepInterval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	r.sweepMu.Lock()
	if !r.lastSweep.IsZero() && now.Sub(r.lastSweep) < interval {
		r.sweepMu.Unlock()
		return
	}
	r.lastSweep = now
	r.sweepMu.Unlock()

	// Best effort: an unswept expired entry is still treated as expired by Check.
	_, _ = sweeper.SweepRateLimits(ctx, now)
}

func (r *RateLimiter) lockFor(identifier string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identifier))
	return &r.locks[h.Sum32()%lockStripes]
}

func (r *RateLimiter) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

func freshWindow(limit RateLimit, now time.Time) core.RateLimitResult {
	return core.RateLimitResult{
		Success:   true,
		Remaining: limit.RequestsPerWindow - 1,
		ResetAt:   now.Add(limit.WindowDuration),
	}
}
