package http

import (
	"net/http"
	"strconv"

	syncx "github.com/mind-engage/mindengage-ielts/internal/sync"
	"github.com/mind-engage/mindengage-ielts/internal/validate"
)

// GET /events?after=0&limit=100
func ListEventsHandler(events *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var after int64
		if s := r.URL.Query().Get("after"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil || v < 0 {
				writeError(w, r, validate.Errorf("after must be a non-negative integer"))
				return
			}
			after = v
		}
		evs, err := events.Since(r.Context(), after, parseIntDefault(r.URL.Query().Get("limit"), 100))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, evs)
	}
}
