package review

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mind-engage/mindengage-ielts/internal/db"
)

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	for _, r := range []Review{
		{TestID: "t1", UserID: "u1", Rating: 5, Comment: "great passages"},
		{TestID: "t1", UserID: "u2", Rating: 4},
		{TestID: "t1", UserID: "u3", Rating: 4},
		{TestID: "t2", UserID: "u1", Rating: 1},
	} {
		if _, err := s.Create(ctx, r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	l, err := List(ctx, s, "t1", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if l.Count != 3 || len(l.Reviews) != 3 || l.AverageRating != 4.33 {
		t.Errorf("listing %+v", l)
	}
	page, _ := s.ListByTest(ctx, "t1", 2, 2)
	if len(page) != 1 {
		t.Errorf("second page has %d", len(page))
	}
	none, err := List(ctx, s, "t3", 0, 0)
	if err != nil || none.Count != 0 || none.AverageRating != 0 || len(none.Reviews) != 0 {
		t.Errorf("empty listing %+v %v", none, err)
	}
}

func TestMemoryStore(t *testing.T) { exerciseStore(t, NewInMemoryStore()) }

func TestSQLStore(t *testing.T) {
	ctx := context.Background()
	h, err := db.Open(ctx, db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "r.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	// reviews reference tests
	for _, id := range []string{"t1", "t2", "t3"} {
		if _, err := h.Exec(`INSERT INTO tests (id,name,type,content_json,created_at,updated_at) VALUES ($1,'n','reading','{}',0,0)`, id); err != nil {
			t.Fatal(err)
		}
	}
	exerciseStore(t, NewSQLStore(h))
}
