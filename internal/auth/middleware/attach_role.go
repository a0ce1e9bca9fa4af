package auth

import (
	"net/http"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-ielts/internal/rbac"
)

// AttachRoleFromDB replaces the role carried by the token with the one
// currently stored for the subject, so demotions and deletions take effect
// before the token expires. Mount it after JWTMiddleware.
func AttachRoleFromDB(users *Users) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			u, err := users.Get(ctx, SubjectFromContext(ctx))
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, u.Role)))
			case errors.Is(err, ErrUserNotFound):
				http.Error(w, "unknown user", http.StatusUnauthorized)
			default:
				glog.Errorf("role lookup: %v", err)
				http.Error(w, "forbidden", http.StatusForbidden)
			}
		})
	}
}
