package syncx

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mind-engage/mindengage-ielts/internal/db"
	"github.com/mind-engage/mindengage-ielts/internal/exam"
	"github.com/mind-engage/mindengage-ielts/internal/grading"
)

func openRepo(t *testing.T) *EventRepo {
	t.Helper()
	h, err := db.Open(context.Background(), db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "ev.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { h.Close() })
	return NewEventRepo(h)
}

func TestAppendAndSince(t *testing.T) {
	ctx := context.Background()
	r := openRepo(t)
	for _, id := range []string{"a", "b", "c"} {
		if err := r.Append(ctx, Event{Type: TestPut, EntityID: id}); err != nil {
			t.Fatal(err)
		}
	}
	all, err := r.Since(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].EntityID != "a" || all[0].Seq >= all[2].Seq {
		t.Fatalf("events %+v", all)
	}
	rest, _ := r.Since(ctx, all[0].Seq, 1)
	if len(rest) != 1 || rest[0].EntityID != "b" {
		t.Errorf("after first: %+v", rest)
	}
	if none, _ := r.Since(ctx, all[2].Seq, 10); len(none) != 0 {
		t.Errorf("past the end: %+v", none)
	}
}

func TestSinceClampsLimit(t *testing.T) {
	ctx := context.Background()
	r := openRepo(t)
	for i := 0; i < maxEventLimit+1; i++ {
		if err := r.Append(ctx, Event{Type: ResultCreated, EntityID: "r"}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := r.Since(ctx, 0, 10000)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != maxEventLimit {
		t.Errorf("oversized limit returned %d events", len(got))
	}
	if def, _ := r.Since(ctx, 0, 0); len(def) != defaultEventLimit {
		t.Errorf("default limit returned %d events", len(def))
	}
}

type failingStore struct{ *exam.MemoryStore }

func (failingStore) DeleteTest(context.Context, string) error { return errors.New("boom") }

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	r := openRepo(t)
	s := Record(failingStore{exam.NewInMemoryStore()}, r)

	tt, err := s.PutTest(ctx, exam.Test{Name: "R", Type: exam.TypeReading, Content: exam.ReadingContent{
		Passages: []exam.Passage{{Questions: []exam.Question{{Number: 1, CorrectAnswer: grading.Single("A")}}}}}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateResult(ctx, exam.Result{UserID: "u1", TestID: tt.ID, TestType: exam.TypeReading, BandScore: 6.5}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteTest(ctx, tt.ID); err == nil {
		t.Fatal("delete should fail")
	}

	evs, err := r.Since(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 2 {
		t.Fatalf("want 2 events, got %+v", evs)
	}
	if evs[0].Type != TestPut || evs[0].EntityID != tt.ID {
		t.Errorf("first %+v", evs[0])
	}
	if evs[1].Type != ResultCreated || !strings.Contains(string(evs[1].Data), `"bandScore":6.5`) {
		t.Errorf("second %+v %s", evs[1], evs[1].Data)
	}
}
