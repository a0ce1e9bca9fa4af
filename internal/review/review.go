package review

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Review struct {
	ID        string `json:"id"`
	TestID    string `json:"testId"`
	UserID    string `json:"userId"`
	Rating    int    `json:"rating" validate:"min=1,max=5"`
	Comment   string `json:"comment,omitempty" validate:"max=2000"`
	CreatedAt int64  `json:"createdAt"`
}

// Listing is the reviews of one test with their mean rating.
type Listing struct {
	TestID        string   `json:"testId"`
	AverageRating float64  `json:"averageRating"`
	Count         int      `json:"count"`
	Reviews       []Review `json:"reviews"`
}

type Store interface {
	Create(ctx context.Context, r Review) (Review, error)
	ListByTest(ctx context.Context, testID string, limit, offset int) ([]Review, error)
	// Rating returns the mean rating and number of reviews of a test.
	Rating(ctx context.Context, testID string) (float64, int, error)
}

// List assembles a Listing from s.
func List(ctx context.Context, s Store, testID string, limit, offset int) (Listing, error) {
	rs, err := s.ListByTest(ctx, testID, limit, offset)
	if err != nil {
		return Listing{}, err
	}
	avg, n, err := s.Rating(ctx, testID)
	if err != nil {
		return Listing{}, err
	}
	return Listing{TestID: testID, AverageRating: round2(avg), Count: n, Reviews: rs}, nil
}

func round2(v float64) float64 { return float64(int64(v*100+0.5)) / 100 }

func clamp(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

type SQLStore struct{ db *sql.DB }

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Create(ctx context.Context, r Review) (Review, error) {
	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `INSERT INTO reviews (id,test_id,user_id,rating,comment,created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`, r.ID, r.TestID, r.UserID, r.Rating, r.Comment, r.CreatedAt)
	if err != nil {
		return Review{}, errors.Wrap(err, "insert review")
	}
	return r, nil
}

func (s *SQLStore) ListByTest(ctx context.Context, testID string, limit, offset int) ([]Review, error) {
	limit, offset = clamp(limit, offset)
	rows, err := s.db.QueryContext(ctx, `SELECT id,test_id,user_id,rating,comment,created_at FROM reviews
		WHERE test_id=$1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`, testID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list reviews")
	}
	defer rows.Close()
	out := []Review{}
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.TestID, &r.UserID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) Rating(ctx context.Context, testID string) (float64, int, error) {
	var (
		avg sql.NullFloat64
		n   int
	)
	err := s.db.QueryRowContext(ctx, `SELECT AVG(rating), COUNT(*) FROM reviews WHERE test_id=$1`, testID).Scan(&avg, &n)
	if err != nil {
		return 0, 0, errors.Wrap(err, "review rating")
	}
	return avg.Float64, n, nil
}

type MemoryStore struct {
	mu      sync.RWMutex
	reviews []Review
}

func NewInMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Create(_ context.Context, r Review) (Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().Unix()
	m.reviews = append(m.reviews, r)
	return r, nil
}

func (m *MemoryStore) ListByTest(_ context.Context, testID string, limit, offset int) ([]Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	limit, offset = clamp(limit, offset)
	out := []Review{}
	for i := len(m.reviews) - 1; i >= 0; i-- {
		if m.reviews[i].TestID == testID {
			out = append(out, m.reviews[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	if offset >= len(out) {
		return []Review{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Rating(_ context.Context, testID string) (float64, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum, n := 0, 0
	for _, r := range m.reviews {
		if r.TestID == testID {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(n), n, nil
}
