package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	authmw "github.com/mind-engage/mindengage-ielts/internal/auth/middleware"
	"github.com/mind-engage/mindengage-ielts/internal/validate"
)

// GET /users?role=student
func ListUsersHandler(users *authmw.Users) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := users.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("role")))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// PATCH /users/{userID}  { "role": "student|admin" }
func UpdateUserRoleHandler(users *authmw.Users, v *validate.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Role string `json:"role" validate:"required"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := v.Struct(req); err != nil {
			writeError(w, r, err)
			return
		}
		id := chi.URLParam(r, "userID")
		if id == authmw.SubjectFromContext(r.Context()) && req.Role != authmw.RoleAdmin {
			http.Error(w, "admins cannot demote themselves", http.StatusConflict)
			return
		}
		u, err := users.SetRole(r.Context(), id, req.Role)
		if errors.Is(err, authmw.ErrUserNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if errors.Is(err, authmw.ErrUnknownRole) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		glog.Infof("user %s is now %s", u.ID, u.Role)
		writeJSON(w, http.StatusOK, u)
	}
}
