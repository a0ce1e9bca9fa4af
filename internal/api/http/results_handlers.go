package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-ielts/internal/auth/middleware"
	"github.com/mind-engage/mindengage-ielts/internal/exam"
	"github.com/mind-engage/mindengage-ielts/internal/rbac"
)

// POST /results  { "testId", "testType", "answers": [{questionNumber, userAnswer}], "timeSpent" }
// The submitting user is always the token subject.
func SubmitHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub exam.Submission
		if err := decodeJSON(r, &sub); err != nil {
			writeError(w, r, err)
			return
		}
		sub.UserID = authmw.SubjectFromContext(r.Context())
		if t, ok := exam.ParseTestType(string(sub.TestType)); ok {
			sub.TestType = t
		}
		sum, err := svc.Submit(r.Context(), sub)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, sum)
	}
}

// GET /results?testId=...&testType=...&userId=...&limit=50&offset=0
// Without result:view-all the listing is scoped to the caller.
func ListResultsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typ, err := typeParam(r, "testType")
		if err != nil {
			writeError(w, r, err)
			return
		}
		q := r.URL.Query()
		userID := strings.TrimSpace(q.Get("userId"))
		if !rbac.Can(r.Context(), "result:view-all") {
			userID = authmw.SubjectFromContext(r.Context())
		}
		list, err := store.ListResults(r.Context(), exam.ResultListOpts{
			UserID:   userID,
			TestID:   strings.TrimSpace(q.Get("testId")),
			TestType: typ,
			Limit:    parseIntDefault(q.Get("limit"), 50),
			Offset:   parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /results/{resultID}
func GetResultHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := store.GetResult(r.Context(), chi.URLParam(r, "resultID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if res.UserID != authmw.SubjectFromContext(r.Context()) && !rbac.Can(r.Context(), "result:view-all") {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /me/stats
func MyStatsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := store.UserStats(r.Context(), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// GET /leaderboard?testType=reading&limit=10
func LeaderboardHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typ, err := typeParam(r, "testType")
		if err != nil {
			writeError(w, r, err)
			return
		}
		lb, err := store.Leaderboard(r.Context(), exam.LeaderboardOpts{
			TestType: typ,
			Limit:    parseIntDefault(r.URL.Query().Get("limit"), 10),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, lb)
	}
}
