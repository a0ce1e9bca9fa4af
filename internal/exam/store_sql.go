package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-ielts/internal/grading"
)

// SQLStore keeps tests and results as rows with JSON document columns.
// It works on the sqlite and postgres schemas from internal/db.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

func (s *SQLStore) PutTest(ctx context.Context, t Test) (Test, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	cj, err := encodeContent(t.Content)
	if err != nil {
		return Test{}, err
	}
	now := s.now().Unix()
	_, err = s.db.ExecContext(ctx, `INSERT INTO tests
		(id,name,type,difficulty,time_limit_sec,total_questions,content_json,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, type=EXCLUDED.type,
			difficulty=EXCLUDED.difficulty, time_limit_sec=EXCLUDED.time_limit_sec,
			total_questions=EXCLUDED.total_questions, content_json=EXCLUDED.content_json,
			updated_at=EXCLUDED.updated_at`,
		t.ID, t.Name, string(t.Type), t.Difficulty, t.TimeLimitSec, t.TotalQuestions, cj, now)
	if err != nil {
		return Test{}, errors.Wrap(err, "put test")
	}
	return s.GetTest(ctx, t.ID, "")
}

func (s *SQLStore) GetTest(ctx context.Context, id string, typ TestType) (Test, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,name,type,difficulty,time_limit_sec,total_questions,content_json,created_at,updated_at
		FROM tests WHERE id=$1`, id)
	var (
		t     Test
		ttype string
		cj    string
	)
	if err := row.Scan(&t.ID, &t.Name, &ttype, &t.Difficulty, &t.TimeLimitSec, &t.TotalQuestions, &cj, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, ErrNotFound
		}
		return Test{}, errors.Wrap(err, "get test")
	}
	t.Type = TestType(ttype)
	if typ != "" && t.Type != typ {
		return Test{}, ErrNotFound
	}
	c, err := decodeContent(t.Type, cj)
	if err != nil {
		return Test{}, errors.Wrapf(err, "decode test %s", id)
	}
	t.Content = c
	return t, nil
}

func (s *SQLStore) DeleteTest(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tests WHERE id=$1`, id)
	if err != nil {
		return errors.Wrap(err, "delete test")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListTests(ctx context.Context, opts ListOpts) ([]TestSummary, error) {
	var w where
	if opts.Type != "" {
		w.add("type=", string(opts.Type))
	}
	if q := strings.TrimSpace(opts.Q); q != "" {
		w.add("LOWER(name) LIKE ", "%"+strings.ToLower(q)+"%")
	}
	query := `SELECT id,name,type,difficulty,time_limit_sec,total_questions,created_at FROM tests` +
		w.sql() + ` ORDER BY created_at DESC, id` + w.page(clampLimit(opts.Limit, defaultLimit), opts.Offset)
	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "list tests")
	}
	defer rows.Close()
	out := []TestSummary{}
	for rows.Next() {
		var ts TestSummary
		var ttype string
		if err := rows.Scan(&ts.ID, &ts.Name, &ttype, &ts.Difficulty, &ts.TimeLimitSec, &ts.TotalQuestions, &ts.CreatedAt); err != nil {
			return nil, err
		}
		ts.Type = TestType(ttype)
		out = append(out, ts)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateResult(ctx context.Context, r Result) (Result, error) {
	r.ID = uuid.NewString()
	r.CreatedAt = s.now().Unix()
	if r.Answers == nil {
		r.Answers = []grading.Graded{}
	}
	aj, err := json.Marshal(r.Answers)
	if err != nil {
		return Result{}, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO results
		(id,user_id,test_id,test_type,answers_json,total_score,max_score,correct_count,total_questions,band_score,time_spent,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		r.ID, r.UserID, r.TestID, string(r.TestType), string(aj), r.TotalScore, r.MaxScore,
		r.CorrectCount, r.TotalQuestions, r.BandScore, r.TimeSpent, r.CreatedAt)
	if err != nil {
		return Result{}, errors.Wrap(err, "insert result")
	}
	return r, nil
}

const resultCols = `id,user_id,test_id,test_type,answers_json,total_score,max_score,correct_count,total_questions,band_score,time_spent,created_at`

func scanResult(sc interface{ Scan(...any) error }) (Result, error) {
	var (
		r     Result
		ttype string
		aj    string
	)
	if err := sc.Scan(&r.ID, &r.UserID, &r.TestID, &ttype, &aj, &r.TotalScore, &r.MaxScore,
		&r.CorrectCount, &r.TotalQuestions, &r.BandScore, &r.TimeSpent, &r.CreatedAt); err != nil {
		return Result{}, err
	}
	r.TestType = TestType(ttype)
	if err := json.Unmarshal([]byte(aj), &r.Answers); err != nil {
		return Result{}, errors.Wrapf(err, "decode answers of result %s", r.ID)
	}
	return r, nil
}

func (s *SQLStore) GetResult(ctx context.Context, id string) (Result, error) {
	r, err := scanResult(s.db.QueryRowContext(ctx, `SELECT `+resultCols+` FROM results WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Result{}, ErrNotFound
		}
		return Result{}, errors.Wrap(err, "get result")
	}
	return r, nil
}

func (s *SQLStore) ListResults(ctx context.Context, opts ResultListOpts) ([]Result, error) {
	var w where
	if opts.UserID != "" {
		w.add("user_id=", opts.UserID)
	}
	if opts.TestID != "" {
		w.add("test_id=", opts.TestID)
	}
	if opts.TestType != "" {
		w.add("test_type=", string(opts.TestType))
	}
	query := `SELECT ` + resultCols + ` FROM results` + w.sql() +
		` ORDER BY created_at DESC, id DESC` + w.page(clampLimit(opts.Limit, defaultLimit), opts.Offset)
	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "list results")
	}
	defer rows.Close()
	out := []Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) Leaderboard(ctx context.Context, opts LeaderboardOpts) ([]LeaderboardEntry, error) {
	var w where
	if opts.TestType != "" {
		w.add("r.test_type=", string(opts.TestType))
	}
	query := `SELECT r.user_id, COALESCE(u.username, ''), MAX(r.band_score), AVG(r.band_score), COUNT(*)
		FROM results r LEFT JOIN users u ON u.id = r.user_id` + w.sql() + `
		GROUP BY r.user_id, u.username
		ORDER BY 3 DESC, 4 DESC, 5 DESC, r.user_id` + w.page(clampLimit(opts.Limit, 10), 0)
	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "leaderboard")
	}
	defer rows.Close()
	out := []LeaderboardEntry{}
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.BestBand, &e.AverageBand, &e.Attempts); err != nil {
			return nil, err
		}
		e.AverageBand = roundBand(e.AverageBand)
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) UserStats(ctx context.Context, userID string) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT test_type, COUNT(*), AVG(band_score), MAX(band_score)
		FROM results WHERE user_id=$1 GROUP BY test_type`, userID)
	if err != nil {
		return Stats{}, errors.Wrap(err, "user stats")
	}
	defer rows.Close()
	byType := map[TestType]TypeStats{}
	for rows.Next() {
		var (
			ttype string
			ts    TypeStats
		)
		if err := rows.Scan(&ttype, &ts.Attempts, &ts.AverageBand, &ts.BestBand); err != nil {
			return Stats{}, err
		}
		ts.AverageBand = roundBand(ts.AverageBand)
		byType[TestType(ttype)] = ts
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}
	return combineStats(userID, byType), nil
}

// where accumulates AND-ed conditions with $n placeholders.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(expr string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, expr+"$"+strconv.Itoa(len(w.args)))
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page appends LIMIT/OFFSET placeholders; call it after the last add.
func (w *where) page(limit, offset int) string {
	if offset < 0 {
		offset = 0
	}
	w.args = append(w.args, limit, offset)
	n := len(w.args)
	return " LIMIT $" + strconv.Itoa(n-1) + " OFFSET $" + strconv.Itoa(n)
}

func encodeContent(c Content) (string, error) {
	if c == nil {
		return "", errors.New("test has no content")
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeContent(typ TestType, raw string) (Content, error) {
	switch typ {
	case TypeReading:
		var c ReadingContent
		err := json.Unmarshal([]byte(raw), &c)
		return c, err
	case TypeListening:
		var c ListeningContent
		err := json.Unmarshal([]byte(raw), &c)
		return c, err
	default:
		return nil, errors.Errorf("unknown test type %q", typ)
	}
}
