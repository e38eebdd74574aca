package roof

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultStoreLimit bounds how many recent results are kept in memory.
const DefaultStoreLimit = 200

// ResultSummary is the compact listing entry for a stored result.
type ResultSummary struct {
	JobID                 string    `json:"jobId"`
	TotalAdjustedAreaSqft float64   `json:"totalAdjustedAreaSqft"`
	ConfidenceRating      string    `json:"confidenceRating"`
	ManualReviewRequired  bool      `json:"manualReviewRequired"`
	RiskLevel             RiskLevel `json:"riskLevel"`
	MeasuredAt            time.Time `json:"measuredAt"`
}

// ResultStore keeps recent measurement results for the HTTP endpoints,
// evicting oldest-first past the limit, with optional JSON persistence so
// results survive a restart.
type ResultStore struct {
	mu        sync.RWMutex
	persistMu sync.Mutex
	results   map[string]*MeasurementResult
	order     []string
	limit     int
	cachePath string
}

// NewResultStore creates an in-memory store.
func NewResultStore(limit int) *ResultStore {
	if limit <= 0 {
		limit = DefaultStoreLimit
	}
	return &ResultStore{
		results: make(map[string]*MeasurementResult),
		limit:   limit,
	}
}

// NewResultStoreWithCache creates a store that persists to cachePath. If
// the file already exists its results are loaded on creation; a corrupt
// cache is logged and ignored.
func NewResultStoreWithCache(limit int, cachePath string) *ResultStore {
	st := NewResultStore(limit)
	st.cachePath = cachePath
	if cachePath == "" {
		return st
	}
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return st
	}
	var cached []*MeasurementResult
	if err := json.Unmarshal(data, &cached); err != nil {
		log.Printf("Warning: ignoring corrupt result cache %s: %v", cachePath, err)
		return st
	}
	for _, r := range cached {
		st.put(r)
	}
	return st
}

// Put stores a result, evicting the oldest entry when over the limit, and
// persists the cache when enabled.
func (st *ResultStore) Put(r *MeasurementResult) {
	st.mu.Lock()
	st.put(r)
	if st.cachePath == "" {
		st.mu.Unlock()
		return
	}
	snapshot := make([]*MeasurementResult, 0, len(st.order))
	for _, id := range st.order {
		snapshot = append(snapshot, st.results[id])
	}
	// The file lock is taken before the state lock is released so a later
	// Put cannot rename an older snapshot over a newer one.
	st.persistMu.Lock()
	st.mu.Unlock()
	defer st.persistMu.Unlock()

	if err := st.persist(snapshot); err != nil {
		log.Printf("Warning: failed to persist result cache: %v", err)
	}
}

// put assumes the write lock is held (or the store is not yet shared).
func (st *ResultStore) put(r *MeasurementResult) {
	if r == nil || r.JobID == "" {
		return
	}
	if _, exists := st.results[r.JobID]; !exists {
		st.order = append(st.order, r.JobID)
	}
	st.results[r.JobID] = r
	for len(st.order) > st.limit {
		oldest := st.order[0]
		st.order = st.order[1:]
		delete(st.results, oldest)
	}
}

// Get returns the result for a job ID, or nil.
func (st *ResultStore) Get(jobID string) *MeasurementResult {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.results[jobID]
}

// List returns summaries of all stored results, newest first.
func (st *ResultStore) List() []ResultSummary {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]ResultSummary, 0, len(st.order))
	for i := len(st.order) - 1; i >= 0; i-- {
		r := st.results[st.order[i]]
		out = append(out, ResultSummary{
			JobID:                 r.JobID,
			TotalAdjustedAreaSqft: r.TotalAdjustedAreaSqft,
			ConfidenceRating:      r.ConfidenceRating,
			ManualReviewRequired:  r.ManualReviewRequired,
			RiskLevel:             r.RiskLevel,
			MeasuredAt:            r.MeasuredAt,
		})
	}
	return out
}

// Count returns the number of stored results.
func (st *ResultStore) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.results)
}

// persist writes the snapshot to the cache file via a temp-file rename.
// Callers hold persistMu.
func (st *ResultStore) persist(all []*MeasurementResult) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result cache: %w", err)
	}
	tmp := st.cachePath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(st.cachePath), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing result cache: %w", err)
	}
	if err := os.Rename(tmp, st.cachePath); err != nil {
		return fmt.Errorf("replacing result cache: %w", err)
	}
	return nil
}
