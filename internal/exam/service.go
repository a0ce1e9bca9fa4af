package exam

import (
	"context"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-ielts/internal/grading"
	"github.com/mind-engage/mindengage-ielts/internal/validate"
)

// Service grades submissions against stored tests and records results.
// It holds no per-request state; every submission re-reads its test.
type Service struct {
	store Store
	v     *validate.Validator
}

func NewService(store Store, v *validate.Validator) *Service {
	if v == nil {
		v = validate.New()
	}
	return &Service{store: store, v: v}
}

// Grade scores answers against t without touching storage.
func Grade(t Test, answers []SubmittedAnswer) grading.Outcome {
	qs := t.Questions()
	gq := make([]grading.Q, len(qs))
	for i, q := range qs {
		gq[i] = grading.Q{Number: q.Number, Key: q.CorrectAnswer, Points: q.Points}
	}
	resp := make([]grading.Response, len(answers))
	for i, a := range answers {
		resp[i] = grading.Response{Number: a.QuestionNumber, Value: a.UserAnswer}
	}
	return grading.Grade(gq, resp)
}

// Submit validates sub, grades it and appends exactly one Result.
// Malformed input fails with validate.ErrInvalid before any storage access;
// an unknown test (or one of another type) fails with ErrNotFound.
func (s *Service) Submit(ctx context.Context, sub Submission) (Summary, error) {
	if err := s.v.Struct(sub); err != nil {
		return Summary{}, err
	}
	t, err := s.store.GetTest(ctx, sub.TestID, sub.TestType)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Summary{}, errors.Wrapf(err, "%s test %s", sub.TestType, sub.TestID)
		}
		return Summary{}, errors.Wrap(err, "load test")
	}

	out := Grade(t, sub.Answers)
	res, err := s.store.CreateResult(ctx, Result{
		UserID:         sub.UserID,
		TestID:         t.ID,
		TestType:       t.Type,
		Answers:        out.Answers,
		TotalScore:     out.TotalScore,
		MaxScore:       out.MaxScore,
		CorrectCount:   out.CorrectCount,
		TotalQuestions: out.TotalQuestions,
		BandScore:      out.Band,
		TimeSpent:      sub.TimeSpent,
	})
	if err != nil {
		return Summary{}, errors.Wrap(err, "save result")
	}
	glog.V(2).Infof("graded %s test %s for %s: %d/%d correct, band %.1f",
		t.Type, t.ID, sub.UserID, out.CorrectCount, out.TotalQuestions, out.Band)

	return Summary{
		Result:         res,
		CorrectAnswers: out.CorrectCount,
		TotalQuestions: out.TotalQuestions,
		Percentage:     grading.FormatPercentage(out.Percentage),
	}, nil
}
