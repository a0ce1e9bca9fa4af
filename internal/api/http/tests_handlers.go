package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang/glog"

	"github.com/mind-engage/mindengage-ielts/internal/exam"
	"github.com/mind-engage/mindengage-ielts/internal/rbac"
	"github.com/mind-engage/mindengage-ielts/internal/validate"
)

// GET /tests?type=reading&q=...&limit=50&offset=0
func ListTestsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typ, err := typeParam(r, "type")
		if err != nil {
			writeError(w, r, err)
			return
		}
		list, err := store.ListTests(r.Context(), exam.ListOpts{
			Type:   typ,
			Q:      strings.TrimSpace(r.URL.Query().Get("q")),
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /tests/{testID}?type=listening
// Answer keys are only included for roles holding test:view-answers.
func GetTestHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typ, err := typeParam(r, "type")
		if err != nil {
			writeError(w, r, err)
			return
		}
		t, err := store.GetTest(r.Context(), chi.URLParam(r, "testID"), typ)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !rbac.Can(r.Context(), "test:view-answers") {
			t = exam.PublicView(t)
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// POST /tests
// The server assigns the ID.
func CreateTestHandler(store exam.Store, v *validate.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var t exam.Test
		if err := decodeJSON(r, &t); err != nil {
			writeError(w, r, err)
			return
		}
		t.ID = ""
		t, err := exam.PrepareTest(v, t)
		if err != nil {
			writeError(w, r, err)
			return
		}
		saved, err := store.PutTest(r.Context(), t)
		if err != nil {
			writeError(w, r, err)
			return
		}
		glog.Infof("test %s created (%s, %d questions)", saved.ID, saved.Type, saved.TotalQuestions)
		writeJSON(w, http.StatusCreated, saved)
	}
}

// PUT /tests/{testID}
func UpdateTestHandler(store exam.Store, v *validate.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "testID")
		if _, err := store.GetTest(r.Context(), id, ""); err != nil {
			writeError(w, r, err)
			return
		}
		var t exam.Test
		if err := decodeJSON(r, &t); err != nil {
			writeError(w, r, err)
			return
		}
		t.ID = id
		t, err := exam.PrepareTest(v, t)
		if err != nil {
			writeError(w, r, err)
			return
		}
		saved, err := store.PutTest(r.Context(), t)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

// DELETE /tests/{testID}
// Results graded against the test are kept.
func DeleteTestHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "testID")
		if err := store.DeleteTest(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		glog.Infof("test %s deleted", id)
		w.WriteHeader(http.StatusNoContent)
	}
}
