package exam

import (
	"context"
	"errors"
	"testing"

	"github.com/mind-engage/mindengage-ielts/internal/grading"
	"github.com/mind-engage/mindengage-ielts/internal/validate"
)

// countingStore records calls so tests can assert what touched storage.
type countingStore struct {
	*MemoryStore
	gets    int
	creates int
	failGet error
	failPut error
}

func (c *countingStore) GetTest(ctx context.Context, id string, typ TestType) (Test, error) {
	c.gets++
	if c.failGet != nil {
		return Test{}, c.failGet
	}
	return c.MemoryStore.GetTest(ctx, id, typ)
}

func (c *countingStore) CreateResult(ctx context.Context, r Result) (Result, error) {
	c.creates++
	if c.failPut != nil {
		return Result{}, c.failPut
	}
	return c.MemoryStore.CreateResult(ctx, r)
}

func newServiceFixture(t *testing.T) (*Service, *countingStore) {
	t.Helper()
	cs := &countingStore{MemoryStore: NewInMemoryStore()}
	if _, err := cs.PutTest(context.Background(), readingFixture()); err != nil {
		t.Fatal(err)
	}
	return NewService(cs, validate.New()), cs
}

func submission(answers ...SubmittedAnswer) Submission {
	return Submission{UserID: "u1", TestID: "r1", TestType: TypeReading, Answers: answers, TimeSpent: 1200}
}

func TestSubmitThreeOfFour(t *testing.T) {
	svc, cs := newServiceFixture(t)
	sum, err := svc.Submit(context.Background(), submission(
		SubmittedAnswer{1, grading.Single("TRUE")},
		SubmittedAnswer{2, grading.Single("B")},
		SubmittedAnswer{3, grading.Multiple("iv", "ii")},
		SubmittedAnswer{4, grading.Single("nectar")},
	))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	r := sum.Result
	if r.TotalScore != 3 || r.MaxScore != 4 || r.CorrectCount != 3 || r.BandScore != 8.0 {
		t.Fatalf("result %+v", r)
	}
	if sum.CorrectAnswers != 3 || sum.TotalQuestions != 4 || sum.Percentage != "75.00" {
		t.Fatalf("summary %+v", sum)
	}
	if r.ID == "" || r.CreatedAt == 0 || r.UserID != "u1" || r.TimeSpent != 1200 || r.TestType != TypeReading {
		t.Errorf("stored fields missing: %+v", r)
	}
	if cs.creates != 1 {
		t.Errorf("created %d results", cs.creates)
	}
}

func TestSubmitOmissionScoresLikeWrongAnswer(t *testing.T) {
	svc, _ := newServiceFixture(t)
	sum, err := svc.Submit(context.Background(), submission(
		SubmittedAnswer{1, grading.Single("TRUE")},
		SubmittedAnswer{2, grading.Single("B")},
		SubmittedAnswer{3, grading.Multiple("iv", "ii")},
	))
	if err != nil {
		t.Fatal(err)
	}
	if sum.Result.MaxScore != 4 || sum.CorrectAnswers != 3 || sum.Percentage != "75.00" || sum.Result.BandScore != 8.0 {
		t.Fatalf("summary %+v", sum)
	}
	if len(sum.Result.Answers) != 4 {
		t.Errorf("want 4 graded answers, got %d", len(sum.Result.Answers))
	}
}

func TestSubmitResubmissionCreatesSecondResult(t *testing.T) {
	svc, cs := newServiceFixture(t)
	ctx := context.Background()
	a, err := svc.Submit(ctx, submission(SubmittedAnswer{1, grading.Single("TRUE")}))
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.Submit(ctx, submission(SubmittedAnswer{1, grading.Single("TRUE")}))
	if err != nil {
		t.Fatal(err)
	}
	if a.Result.ID == b.Result.ID {
		t.Errorf("resubmission reused result id")
	}
	list, _ := cs.ListResults(ctx, ResultListOpts{UserID: "u1"})
	if len(list) != 2 {
		t.Errorf("want 2 stored results, got %d", len(list))
	}
}

func TestSubmitUnknownOrWrongTypeIsNotFound(t *testing.T) {
	svc, cs := newServiceFixture(t)
	ctx := context.Background()

	sub := submission()
	sub.Answers = []SubmittedAnswer{}
	sub.TestID = "missing"
	if _, err := svc.Submit(ctx, sub); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing test: got %v", err)
	}

	sub.TestID = "r1"
	sub.TestType = TypeListening
	if _, err := svc.Submit(ctx, sub); !errors.Is(err, ErrNotFound) {
		t.Errorf("wrong type: got %v", err)
	}
	if cs.creates != 0 {
		t.Errorf("a result was written for a failed lookup")
	}
}

func TestSubmitRejectsMalformedInputBeforeStorage(t *testing.T) {
	for _, tt := range []struct {
		name string
		mut  func(*Submission)
	}{
		{"no user", func(s *Submission) { s.UserID = "" }},
		{"no test id", func(s *Submission) { s.TestID = "" }},
		{"bad type", func(s *Submission) { s.TestType = "writing" }},
		{"no answers field", func(s *Submission) { s.Answers = nil }},
		{"zero question number", func(s *Submission) { s.Answers = []SubmittedAnswer{{0, grading.Single("x")}} }},
		{"missing user answer", func(s *Submission) { s.Answers = []SubmittedAnswer{{1, grading.Answer{}}} }},
		{"negative time", func(s *Submission) { s.TimeSpent = -1 }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			svc, cs := newServiceFixture(t)
			sub := submission(SubmittedAnswer{1, grading.Single("TRUE")})
			tt.mut(&sub)
			_, err := svc.Submit(context.Background(), sub)
			if !errors.Is(err, validate.ErrInvalid) {
				t.Fatalf("want ErrInvalid, got %v", err)
			}
			if cs.gets != 0 || cs.creates != 0 {
				t.Errorf("storage touched: gets=%d creates=%d", cs.gets, cs.creates)
			}
		})
	}
}

func TestSubmitSurfacesCollaboratorFailures(t *testing.T) {
	svc, cs := newServiceFixture(t)
	cs.failPut = errors.New("disk full")
	_, err := svc.Submit(context.Background(), submission(SubmittedAnswer{1, grading.Single("TRUE")}))
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, validate.ErrInvalid) {
		t.Fatalf("want generic failure, got %v", err)
	}
	if got := err.Error(); got != "save result: disk full" {
		t.Errorf("message %q", got)
	}
	list, _ := cs.ListResults(context.Background(), ResultListOpts{})
	if len(list) != 0 {
		t.Errorf("partial result persisted")
	}
}

func TestGradeIsPure(t *testing.T) {
	tt := readingFixture()
	answers := []SubmittedAnswer{{1, grading.Single("TRUE")}, {3, grading.Multiple("ii", "iv")}}
	a, b := Grade(tt, answers), Grade(tt, answers)
	if a.TotalScore != b.TotalScore || a.MaxScore != b.MaxScore || a.CorrectCount != b.CorrectCount || a.Band != b.Band {
		t.Errorf("grading is not deterministic: %+v vs %+v", a, b)
	}
	if a.CorrectCount != 1 {
		t.Errorf("reordered matching answer should be wrong, correct=%d", a.CorrectCount)
	}
}
