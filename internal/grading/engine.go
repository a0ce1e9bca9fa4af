package grading

// Q is the minimal view of a question needed for grading.
type Q struct {
	Number int
	Key    Answer
	Points int
}

// Response is one submitted answer, joined to a question by Number.
type Response struct {
	Number int
	Value  Answer
}

// Graded is the immutable outcome for one question.
type Graded struct {
	QuestionNumber int    `json:"questionNumber"`
	UserAnswer     Answer `json:"userAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
	Points         int    `json:"points"`
}

// Outcome aggregates a whole attempt. TotalScore/MaxScore are weighted,
// Percentage and Band are derived from the unweighted correct count.
type Outcome struct {
	Answers        []Graded
	TotalScore     int
	MaxScore       int
	CorrectCount   int
	TotalQuestions int
	Percentage     float64
	Band           float64
}

// DefaultPoints is the weight of a question stored without one.
const DefaultPoints = 1

// Weight returns the effective point weight of q.
func (q Q) Weight() int {
	if q.Points <= 0 {
		return DefaultPoints
	}
	return q.Points
}

// Match reports whether resp earns credit for key. A question without a
// key never does.
func Match(key, resp Answer) bool {
	return !key.IsZero() && key.Equal(resp)
}

// Grade scores responses against questions, keeping question order. An
// unanswered question is graded wrong. Responses to unknown numbers are
// ignored, and for a repeated number the last response wins.
func Grade(questions []Q, responses []Response) Outcome {
	byNumber := make(map[int]Answer, len(responses))
	for _, r := range responses {
		byNumber[r.Number] = r.Value
	}

	out := Outcome{
		Answers:        make([]Graded, 0, len(questions)),
		TotalQuestions: len(questions),
	}
	for _, q := range questions {
		w := q.Weight()
		out.MaxScore += w

		g := Graded{QuestionNumber: q.Number}
		if v, ok := byNumber[q.Number]; ok {
			g.UserAnswer = v
			g.IsCorrect = Match(q.Key, v)
		}
		if g.IsCorrect {
			g.Points = w
			out.TotalScore += w
			out.CorrectCount++
		}
		out.Answers = append(out.Answers, g)
	}
	out.Percentage = Percentage(out.CorrectCount, out.TotalQuestions)
	out.Band = Band(out.Percentage)
	return out
}
