package roof

import (
	"fmt"
	"sync"
)

// BaselineStore holds the reference distributions the anomaly detector
// scores against. Reads take an immutable snapshot; updates replace the
// whole map under a single writer lock (copy-on-write), so concurrent
// measurement runs never observe a partially updated baseline.
type BaselineStore struct {
	mu       sync.RWMutex
	snapshot map[string]BaselineStats
}

// NewBaselineStore creates a store seeded with the static defaults,
// overlaid with any tenant-specific entries provided.
func NewBaselineStore(overrides map[string]BaselineStats) *BaselineStore {
	snap := DefaultBaselines()
	for k, v := range overrides {
		snap[k] = v
	}
	return &BaselineStore{snapshot: snap}
}

// Snapshot returns the current baseline map. The returned map must be
// treated as read-only; it is shared with every in-flight run.
func (s *BaselineStore) Snapshot() map[string]BaselineStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// UpdateBaseline replaces the distribution for one metric. The snapshot is
// copied wholesale so existing readers keep the map they already hold.
func (s *BaselineStore) UpdateBaseline(metric string, stats BaselineStats) error {
	if stats.StdDev <= 0 {
		return fmt.Errorf("baseline %s: stdDev must be positive, got %v", metric, stats.StdDev)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[string]BaselineStats, len(s.snapshot)+1)
	for k, v := range s.snapshot {
		next[k] = v
	}
	next[metric] = stats
	s.snapshot = next
	return nil
}

// ReplaceAll swaps in a complete new baseline set at once, merging over
// the defaults so unmentioned metrics keep sane values.
func (s *BaselineStore) ReplaceAll(baselines map[string]BaselineStats) error {
	for k, v := range baselines {
		if v.StdDev <= 0 {
			return fmt.Errorf("baseline %s: stdDev must be positive, got %v", k, v.StdDev)
		}
	}
	next := DefaultBaselines()
	for k, v := range baselines {
		next[k] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = next
	return nil
}
