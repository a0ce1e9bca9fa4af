package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-ielts/internal/auth/middleware"
	"github.com/mind-engage/mindengage-ielts/internal/exam"
	"github.com/mind-engage/mindengage-ielts/internal/review"
	"github.com/mind-engage/mindengage-ielts/internal/validate"
)

// POST /tests/{testID}/reviews  { "rating": 1..5, "comment": "..." }
func CreateReviewHandler(tests exam.Store, reviews review.Store, v *validate.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Rating  int    `json:"rating"`
			Comment string `json:"comment"`
		}
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		rv := review.Review{
			TestID:  chi.URLParam(r, "testID"),
			UserID:  authmw.SubjectFromContext(r.Context()),
			Rating:  in.Rating,
			Comment: in.Comment,
		}
		if err := v.Struct(rv); err != nil {
			writeError(w, r, err)
			return
		}
		if _, err := tests.GetTest(r.Context(), rv.TestID, ""); err != nil {
			writeError(w, r, err)
			return
		}
		saved, err := reviews.Create(r.Context(), rv)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

// GET /tests/{testID}/reviews?limit=20&offset=0
func ListReviewsHandler(reviews review.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := review.List(r.Context(), reviews, chi.URLParam(r, "testID"),
			parseIntDefault(r.URL.Query().Get("limit"), 20),
			parseIntDefault(r.URL.Query().Get("offset"), 0))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}
