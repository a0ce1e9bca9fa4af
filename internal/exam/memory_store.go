package exam

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process. Usernames are unknown to it, so
// leaderboard entries carry user IDs only.
type MemoryStore struct {
	mu      sync.RWMutex
	tests   map[string]Test
	results []Result
	now     func() time.Time
}

func NewInMemoryStore() *MemoryStore {
	return &MemoryStore{
		tests: map[string]Test{},
		now:   time.Now,
	}
}

func (m *MemoryStore) PutTest(_ context.Context, t Test) (Test, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().Unix()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if prev, ok := m.tests[t.ID]; ok {
		t.CreatedAt = prev.CreatedAt
	} else {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	m.tests[t.ID] = t
	return t, nil
}

func (m *MemoryStore) GetTest(_ context.Context, id string, typ TestType) (Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[id]
	if !ok || (typ != "" && t.Type != typ) {
		return Test{}, ErrNotFound
	}
	return t, nil
}

func (m *MemoryStore) DeleteTest(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[id]; !ok {
		return ErrNotFound
	}
	delete(m.tests, id)
	return nil
}

func (m *MemoryStore) ListTests(_ context.Context, opts ListOpts) ([]TestSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(opts.Q))
	out := []TestSummary{}
	for _, t := range m.tests {
		if opts.Type != "" && t.Type != opts.Type {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(t.Name), q) {
			continue
		}
		out = append(out, summarize(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return page(out, opts.Offset, clampLimit(opts.Limit, defaultLimit)), nil
}

func (m *MemoryStore) CreateResult(_ context.Context, r Result) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.NewString()
	r.CreatedAt = m.now().Unix()
	m.results = append(m.results, r)
	return r, nil
}

func (m *MemoryStore) GetResult(_ context.Context, id string) (Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.results {
		if r.ID == id {
			return r, nil
		}
	}
	return Result{}, ErrNotFound
}

func (m *MemoryStore) ListResults(_ context.Context, opts ResultListOpts) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Result{}
	// newest first: walk the append log backwards
	for i := len(m.results) - 1; i >= 0; i-- {
		r := m.results[i]
		if opts.UserID != "" && r.UserID != opts.UserID {
			continue
		}
		if opts.TestID != "" && r.TestID != opts.TestID {
			continue
		}
		if opts.TestType != "" && r.TestType != opts.TestType {
			continue
		}
		out = append(out, r)
	}
	return page(out, opts.Offset, clampLimit(opts.Limit, defaultLimit)), nil
}

func (m *MemoryStore) Leaderboard(_ context.Context, opts LeaderboardOpts) ([]LeaderboardEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type agg struct {
		best, sum float64
		n         int
	}
	byUser := map[string]*agg{}
	for _, r := range m.results {
		if opts.TestType != "" && r.TestType != opts.TestType {
			continue
		}
		a, ok := byUser[r.UserID]
		if !ok {
			a = &agg{}
			byUser[r.UserID] = a
		}
		if r.BandScore > a.best {
			a.best = r.BandScore
		}
		a.sum += r.BandScore
		a.n++
	}
	out := make([]LeaderboardEntry, 0, len(byUser))
	for uid, a := range byUser {
		out = append(out, LeaderboardEntry{
			UserID:      uid,
			BestBand:    a.best,
			AverageBand: roundBand(a.sum / float64(a.n)),
			Attempts:    a.n,
		})
	}
	sortLeaderboard(out)
	out = page(out, 0, clampLimit(opts.Limit, 10))
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func (m *MemoryStore) UserStats(_ context.Context, userID string) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byType := map[TestType]TypeStats{}
	sums := map[TestType]float64{}
	for _, r := range m.results {
		if r.UserID != userID {
			continue
		}
		ts := byType[r.TestType]
		ts.Attempts++
		if r.BandScore > ts.BestBand {
			ts.BestBand = r.BandScore
		}
		sums[r.TestType] += r.BandScore
		byType[r.TestType] = ts
	}
	for typ, ts := range byType {
		ts.AverageBand = roundBand(sums[typ] / float64(ts.Attempts))
		byType[typ] = ts
	}
	return combineStats(userID, byType), nil
}

// sortLeaderboard orders by best band, then average, then attempts.
func sortLeaderboard(es []LeaderboardEntry) {
	sort.SliceStable(es, func(i, j int) bool {
		a, b := es[i], es[j]
		if a.BestBand != b.BestBand {
			return a.BestBand > b.BestBand
		}
		if a.AverageBand != b.AverageBand {
			return a.AverageBand > b.AverageBand
		}
		if a.Attempts != b.Attempts {
			return a.Attempts > b.Attempts
		}
		return a.UserID < b.UserID
	})
}

func page[T any](xs []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(xs) {
		return xs[:0]
	}
	xs = xs[offset:]
	if limit < len(xs) {
		xs = xs[:limit]
	}
	return xs
}
