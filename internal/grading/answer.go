package grading

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Kind tags the shape of an Answer.
type Kind uint8

const (
	KindNone Kind = iota
	KindSingle
	KindMultiple
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindMultiple:
		return "multiple"
	default:
		return "none"
	}
}

var ErrMalformedAnswer = errors.New("answer must be a string or an array of strings")

// Answer is either a single string or an ordered list of strings.
// The zero value carries no answer.
type Answer struct {
	kind   Kind
	values []string
}

func Single(s string) Answer { return Answer{kind: KindSingle, values: []string{s}} }

func Multiple(vs ...string) Answer {
	cp := make([]string, len(vs))
	copy(cp, vs)
	return Answer{kind: KindMultiple, values: cp}
}

func (a Answer) Kind() Kind   { return a.kind }
func (a Answer) IsZero() bool { return a.kind == KindNone }

// Value returns the string of a single answer and "" otherwise.
func (a Answer) Value() string {
	if a.kind != KindSingle {
		return ""
	}
	return a.values[0]
}

// Values returns a copy of the list of a multiple answer; a single answer
// yields a one-element list.
func (a Answer) Values() []string {
	if a.kind == KindNone {
		return nil
	}
	cp := make([]string, len(a.values))
	copy(cp, a.values)
	return cp
}

// Equal is strict structural equality: same kind, same length, byte-equal
// elements in the same order. No trimming or case folding.
func (a Answer) Equal(b Answer) bool {
	if a.kind != b.kind || len(a.values) != len(b.values) {
		return false
	}
	for i := range a.values {
		if a.values[i] != b.values[i] {
			return false
		}
	}
	return true
}

func (a Answer) String() string {
	switch a.kind {
	case KindSingle:
		return a.values[0]
	case KindMultiple:
		return "[" + strings.Join(a.values, ", ") + "]"
	default:
		return ""
	}
}

func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case KindSingle:
		return json.Marshal(a.values[0])
	case KindMultiple:
		return json.Marshal(a.values)
	default:
		return []byte("null"), nil
	}
}

func (a *Answer) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = Answer{}
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return ErrMalformedAnswer
		}
		*a = Single(s)
		return nil
	case '[':
		var ps []*string
		if err := json.Unmarshal(b, &ps); err != nil {
			return ErrMalformedAnswer
		}
		vs := make([]string, len(ps))
		for i, p := range ps {
			if p == nil {
				return ErrMalformedAnswer
			}
			vs[i] = *p
		}
		*a = Answer{kind: KindMultiple, values: vs}
		return nil
	default:
		return ErrMalformedAnswer
	}
}
