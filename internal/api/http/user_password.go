package http

import (
	"net/http"

	"github.com/pkg/errors"

	authmw "github.com/mind-engage/mindengage-ielts/internal/auth/middleware"
	"github.com/mind-engage/mindengage-ielts/internal/validate"
)

type changePasswordReq struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,maxbytes=72"`
}

// POST /users/change-password
func ChangePasswordHandler(users *authmw.Users, v *validate.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		if userID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req changePasswordReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := v.Struct(req); err != nil {
			writeError(w, r, err)
			return
		}

		err := users.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, authmw.ErrUserNotFound):
			http.Error(w, "user not found", http.StatusNotFound)
		case errors.Is(err, authmw.ErrWrongPassword):
			http.Error(w, err.Error(), http.StatusForbidden)
		default:
			writeError(w, r, err)
		}
	}
}
