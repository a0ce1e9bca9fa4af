package exam

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-ielts/internal/validate"
)

var ErrNotFound = errors.New("not found")

type ListOpts struct {
	Type   TestType // optional filter
	Q      string   // name substring
	Limit  int
	Offset int
}

type ResultListOpts struct {
	UserID   string
	TestID   string
	TestType TestType
	Limit    int
	Offset   int
}

type LeaderboardOpts struct {
	TestType TestType // optional; empty ranks across both types
	Limit    int
}

const (
	defaultLimit = 50
	maxLimit     = 100
)

func clampLimit(n, def int) int {
	if n <= 0 {
		return def
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

// Store holds test definitions and graded results. Results are append-only.
type Store interface {
	// PutTest creates or replaces a test, assigning an ID when empty.
	PutTest(ctx context.Context, t Test) (Test, error)
	// GetTest returns the full test including answer keys. An empty typ
	// matches either type; otherwise a type mismatch is ErrNotFound.
	GetTest(ctx context.Context, id string, typ TestType) (Test, error)
	DeleteTest(ctx context.Context, id string) error
	ListTests(ctx context.Context, opts ListOpts) ([]TestSummary, error)

	// CreateResult stores r with a generated ID and creation time.
	CreateResult(ctx context.Context, r Result) (Result, error)
	GetResult(ctx context.Context, id string) (Result, error)
	ListResults(ctx context.Context, opts ResultListOpts) ([]Result, error)

	Leaderboard(ctx context.Context, opts LeaderboardOpts) ([]LeaderboardEntry, error)
	UserStats(ctx context.Context, userID string) (Stats, error)
}

// PrepareTest validates an admin-supplied test and recomputes the
// denormalized question count.
func PrepareTest(v *validate.Validator, t Test) (Test, error) {
	if err := v.Struct(struct {
		Name string   `json:"name" validate:"required"`
		Type TestType `json:"type" validate:"required,oneof=reading listening"`
		Time int      `json:"timeLimitSec" validate:"min=0"`
	}{t.Name, t.Type, t.TimeLimitSec}); err != nil {
		return Test{}, err
	}
	if t.Content == nil || t.Content.TestType() != t.Type {
		return Test{}, validate.Errorf("%s test needs its %s", t.Type, groupName(t.Type))
	}
	seen := map[int]bool{}
	qs := t.Questions()
	for _, q := range qs {
		if q.Number < 1 {
			return Test{}, validate.Errorf("question numbers start at 1, got %d", q.Number)
		}
		if seen[q.Number] {
			return Test{}, validate.Errorf("duplicate question number %d", q.Number)
		}
		seen[q.Number] = true
		if q.CorrectAnswer.IsZero() {
			return Test{}, validate.Errorf("question %d has no correct answer", q.Number)
		}
		if q.Points < 0 {
			return Test{}, validate.Errorf("question %d has negative points", q.Number)
		}
	}
	t.TotalQuestions = len(qs)
	return t, nil
}

func groupName(t TestType) string {
	if t == TypeListening {
		return "sections"
	}
	return "passages"
}
