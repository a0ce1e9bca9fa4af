package exam

import (
	"encoding/json"
	"strings"

	"github.com/mind-engage/mindengage-ielts/internal/grading"
)

type TestType string

const (
	TypeReading   TestType = "reading"
	TypeListening TestType = "listening"
)

func (t TestType) Valid() bool { return t == TypeReading || t == TypeListening }

// ParseTestType accepts any casing ("Reading", "listening").
func ParseTestType(s string) (TestType, bool) {
	t := TestType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// QuestionType is informational; grading treats all types the same.
type QuestionType string

const (
	QMultipleChoice     QuestionType = "multiple-choice"
	QMatching           QuestionType = "matching"
	QMatchingHeadings   QuestionType = "matching-headings"
	QSentenceCompletion QuestionType = "sentence-completion"
	QSummaryCompletion  QuestionType = "summary-completion"
	QNoteCompletion     QuestionType = "note-completion"
	QTableCompletion    QuestionType = "table-completion"
	QFormCompletion     QuestionType = "form-completion"
	QDiagramLabel       QuestionType = "diagram-label"
	QShortAnswer        QuestionType = "short-answer"
	QTrueFalseNotGiven  QuestionType = "true-false-not-given"
	QYesNoNotGiven      QuestionType = "yes-no-not-given"
)

type Question struct {
	Number        int            `json:"questionNumber"`
	Type          QuestionType   `json:"type"`
	Prompt        string         `json:"prompt,omitempty"`
	Options       []string       `json:"options,omitempty"`
	CorrectAnswer grading.Answer `json:"correctAnswer"`
	Points        int            `json:"points,omitempty"`
}

type Passage struct {
	Title     string     `json:"title"`
	Text      string     `json:"text,omitempty"`
	Questions []Question `json:"questions"`
}

type Section struct {
	Title      string     `json:"title"`
	AudioURL   string     `json:"audioUrl,omitempty"`
	Transcript string     `json:"transcript,omitempty"`
	Questions  []Question `json:"questions"`
}

// Content is the body of a test: ReadingContent or ListeningContent.
type Content interface {
	TestType() TestType
	// Questions flattens the groups into one ordered list.
	Questions() []Question
	withoutAnswers() Content
}

type ReadingContent struct {
	Passages []Passage `json:"passages"`
}

func (ReadingContent) TestType() TestType { return TypeReading }

func (c ReadingContent) Questions() []Question {
	var out []Question
	for _, p := range c.Passages {
		out = append(out, p.Questions...)
	}
	return out
}

func (c ReadingContent) withoutAnswers() Content {
	ps := make([]Passage, len(c.Passages))
	for i, p := range c.Passages {
		p.Questions = stripAnswers(p.Questions)
		ps[i] = p
	}
	return ReadingContent{Passages: ps}
}

type ListeningContent struct {
	Sections []Section `json:"sections"`
}

func (ListeningContent) TestType() TestType { return TypeListening }

func (c ListeningContent) Questions() []Question {
	var out []Question
	for _, s := range c.Sections {
		out = append(out, s.Questions...)
	}
	return out
}

func (c ListeningContent) withoutAnswers() Content {
	ss := make([]Section, len(c.Sections))
	for i, s := range c.Sections {
		s.Questions = stripAnswers(s.Questions)
		s.Transcript = ""
		ss[i] = s
	}
	return ListeningContent{Sections: ss}
}

func stripAnswers(qs []Question) []Question {
	out := make([]Question, len(qs))
	for i, q := range qs {
		q.CorrectAnswer = grading.Answer{}
		out[i] = q
	}
	return out
}

// Test is a reading or listening assessment. TotalQuestions is
// denormalized from Content when the test is saved.
type Test struct {
	ID             string
	Name           string
	Type           TestType
	Difficulty     string
	TimeLimitSec   int
	TotalQuestions int
	Content        Content
	CreatedAt      int64
	UpdatedAt      int64
}

// Questions returns the flattened question list, or nil without content.
func (t Test) Questions() []Question {
	if t.Content == nil {
		return nil
	}
	return t.Content.Questions()
}

// PublicView returns a copy of t that is safe to show to test takers.
func PublicView(t Test) Test {
	if t.Content != nil {
		t.Content = t.Content.withoutAnswers()
	}
	return t
}

type testWire struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Type           TestType  `json:"type"`
	Difficulty     string    `json:"difficulty,omitempty"`
	TimeLimitSec   int       `json:"timeLimitSec"`
	TotalQuestions int       `json:"totalQuestions"`
	Passages       []Passage `json:"passages,omitempty"`
	Sections       []Section `json:"sections,omitempty"`
	CreatedAt      int64     `json:"createdAt,omitempty"`
	UpdatedAt      int64     `json:"updatedAt,omitempty"`
}

func (t Test) MarshalJSON() ([]byte, error) {
	w := testWire{
		ID:             t.ID,
		Name:           t.Name,
		Type:           t.Type,
		Difficulty:     t.Difficulty,
		TimeLimitSec:   t.TimeLimitSec,
		TotalQuestions: t.TotalQuestions,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	switch c := t.Content.(type) {
	case ReadingContent:
		w.Passages = c.Passages
	case ListeningContent:
		w.Sections = c.Sections
	}
	return json.Marshal(w)
}

// UnmarshalJSON picks passages or sections by the declared type; a test
// with an unknown type decodes without content.
func (t *Test) UnmarshalJSON(b []byte) error {
	var w testWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	typ, _ := ParseTestType(string(w.Type))
	*t = Test{
		ID:             w.ID,
		Name:           w.Name,
		Type:           typ,
		Difficulty:     w.Difficulty,
		TimeLimitSec:   w.TimeLimitSec,
		TotalQuestions: w.TotalQuestions,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
	switch typ {
	case TypeReading:
		t.Content = ReadingContent{Passages: w.Passages}
	case TypeListening:
		t.Content = ListeningContent{Sections: w.Sections}
	default:
		t.Type = w.Type
	}
	return nil
}

type TestSummary struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Type           TestType `json:"type"`
	Difficulty     string   `json:"difficulty,omitempty"`
	TimeLimitSec   int      `json:"timeLimitSec"`
	TotalQuestions int      `json:"totalQuestions"`
	CreatedAt      int64    `json:"createdAt"`
}

func summarize(t Test) TestSummary {
	return TestSummary{
		ID:             t.ID,
		Name:           t.Name,
		Type:           t.Type,
		Difficulty:     t.Difficulty,
		TimeLimitSec:   t.TimeLimitSec,
		TotalQuestions: t.TotalQuestions,
		CreatedAt:      t.CreatedAt,
	}
}

type SubmittedAnswer struct {
	QuestionNumber int            `json:"questionNumber" validate:"min=1"`
	UserAnswer     grading.Answer `json:"userAnswer" validate:"required"`
}

// Submission is one attempt as sent by a test taker. TimeSpent is seconds.
type Submission struct {
	UserID    string            `json:"userId" validate:"required"`
	TestID    string            `json:"testId" validate:"required"`
	TestType  TestType          `json:"testType" validate:"required,oneof=reading listening"`
	Answers   []SubmittedAnswer `json:"answers" validate:"required,dive"`
	TimeSpent int               `json:"timeSpent" validate:"min=0"`
}

// Result is the persisted outcome of one submission. It is never updated.
type Result struct {
	ID             string           `json:"id"`
	UserID         string           `json:"userId"`
	TestID         string           `json:"testId"`
	TestType       TestType         `json:"testType"`
	Answers        []grading.Graded `json:"answers"`
	TotalScore     int              `json:"totalScore"`
	MaxScore       int              `json:"maxScore"`
	CorrectCount   int              `json:"correctCount"`
	TotalQuestions int              `json:"totalQuestions"`
	BandScore      float64          `json:"bandScore"`
	TimeSpent      int              `json:"timeSpent"`
	CreatedAt      int64            `json:"createdAt"`
}

// Summary is what a submitter gets back.
type Summary struct {
	Result         Result `json:"result"`
	CorrectAnswers int    `json:"correctAnswers"`
	TotalQuestions int    `json:"totalQuestions"`
	Percentage     string `json:"percentage"`
}

type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"userId"`
	Username    string  `json:"username,omitempty"`
	BestBand    float64 `json:"bestBand"`
	AverageBand float64 `json:"averageBand"`
	Attempts    int     `json:"attempts"`
}

type TypeStats struct {
	Attempts    int     `json:"attempts"`
	AverageBand float64 `json:"averageBand"`
	BestBand    float64 `json:"bestBand"`
}

type Stats struct {
	UserID      string                 `json:"userId"`
	Attempts    int                    `json:"attempts"`
	AverageBand float64                `json:"averageBand"`
	BestBand    float64                `json:"bestBand"`
	ByType      map[TestType]TypeStats `json:"byType"`
}

// combineStats folds per-type figures into overall ones.
func combineStats(userID string, byType map[TestType]TypeStats) Stats {
	s := Stats{UserID: userID, ByType: byType}
	var sum float64
	for _, ts := range byType {
		s.Attempts += ts.Attempts
		sum += ts.AverageBand * float64(ts.Attempts)
		if ts.BestBand > s.BestBand {
			s.BestBand = ts.BestBand
		}
	}
	if s.Attempts > 0 {
		s.AverageBand = roundBand(sum / float64(s.Attempts))
	}
	return s
}

// roundBand keeps averages to two decimals for display.
func roundBand(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
