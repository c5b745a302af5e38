package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ixra/ixra-api/internal/core"
)

// MemoryRateLimits is a process-local rate limit store. Entries do not survive a restart.
type MemoryRateLimits struct {
	mu      sync.Mutex
	entries map[string]core.RateLimitEntry
}

// NewMemoryRateLimits returns an empty in-memory store.
func NewMemoryRateLimits() *MemoryRateLimits {
	return &MemoryRateLimits{entries: make(map[string]core.RateLimitEntry)}
}

// GetRateLimit returns a copy of the entry for key, or nil when absent.
func (m *MemoryRateLimits) GetRateLimit(_ context.Context, key string) (*core.RateLimitEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// UpdateRateLimit stores entry under key.
func (m *MemoryRateLimits) UpdateRateLimit(_ context.Context, key string, entry *core.RateLimitEntry) error {
	if entry == nil {
		return errors.New("rate limit entry is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]core.RateLimitEntry)
	}
	m.entries[key] = *entry
	return nil
}

// SweepRateLimits removes entries whose window closed before now.
func (m *MemoryRateLimits) SweepRateLimits(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for key, entry := range m.entries {
		if entry.Expired(now) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

// ListRateLimits returns entries matching q ordered by key.
func (m *MemoryRateLimits) ListRateLimits(_ context.Context, q RateLimitQuery) ([]RateLimitRecord, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	records := []RateLimitRecord{}
	for key, entry := range m.entries {
		if q.matches(key) {
			records = append(records, RateLimitRecord{Key: key, Entry: entry})
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records, nil
}

// ResetRateLimits deletes entries matching q.
func (m *MemoryRateLimits) ResetRateLimits(_ context.Context, q RateLimitQuery) (int64, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for key := range m.entries {
		if q.matches(key) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (q RateLimitQuery) matches(key string) bool {
	if q.All {
		return true
	}
	if k := strings.TrimSpace(q.Key); k != "" {
		return key == k
	}
	return strings.HasPrefix(key, strings.TrimSpace(q.Prefix))
}
