package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-ielts/internal/auth/middleware"
	"github.com/mind-engage/mindengage-ielts/internal/exam"
	"github.com/mind-engage/mindengage-ielts/internal/rbac"
	"github.com/mind-engage/mindengage-ielts/internal/review"
	"github.com/mind-engage/mindengage-ielts/internal/storage"
	syncx "github.com/mind-engage/mindengage-ielts/internal/sync"
	"github.com/mind-engage/mindengage-ielts/internal/validate"
)

type Deps struct {
	Tests     exam.Store
	Service   *exam.Service
	Reviews   review.Store
	Users     *authmw.Users
	Auth      *authmw.AuthService
	Blobs     storage.BlobStore
	Validator *validate.Validator

	// Events serves the change feed when set. Tests should then be wrapped
	// with syncx.Record so writes reach it.
	Events *syncx.EventRepo

	// RoleFromDB re-reads the caller's role from the users table on every
	// authenticated request.
	RoleFromDB bool
}

// Mount registers every API route on r.
func Mount(r chi.Router, d Deps) {
	if d.Validator == nil {
		d.Validator = validate.New()
	}
	authn := []func(http.Handler) http.Handler{authmw.JWTMiddleware(d.Auth)}
	if d.RoleFromDB {
		authn = append(authn, authmw.AttachRoleFromDB(d.Users))
	}

	r.Post("/auth/register", authmw.RegisterHandler(d.Auth, d.Users, d.Validator))
	r.Post("/auth/login", authmw.LoginHandler(d.Auth, d.Users))

	r.Route("/assets", func(ar chi.Router) {
		MountAssets(ar, d.Blobs, authn...)
	})

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authn...)

		pr.With(rbac.Require("test:view")).Get("/tests", ListTestsHandler(d.Tests))
		pr.With(rbac.Require("test:view")).Get("/tests/{testID}", GetTestHandler(d.Tests))
		pr.With(rbac.Require("test:create")).Post("/tests", CreateTestHandler(d.Tests, d.Validator))
		pr.With(rbac.Require("test:update")).Put("/tests/{testID}", UpdateTestHandler(d.Tests, d.Validator))
		pr.With(rbac.Require("test:delete")).Delete("/tests/{testID}", DeleteTestHandler(d.Tests))

		pr.With(rbac.Require("review:view")).Get("/tests/{testID}/reviews", ListReviewsHandler(d.Reviews))
		pr.With(rbac.Require("review:create")).Post("/tests/{testID}/reviews", CreateReviewHandler(d.Tests, d.Reviews, d.Validator))

		pr.With(rbac.Require("result:submit")).Post("/results", SubmitHandler(d.Service))
		pr.With(rbac.RequireAny("result:view-own", "result:view-all")).Get("/results", ListResultsHandler(d.Tests))
		pr.With(rbac.RequireAny("result:view-own", "result:view-all")).Get("/results/{resultID}", GetResultHandler(d.Tests))
		pr.With(rbac.Require("stats:view-own")).Get("/me/stats", MyStatsHandler(d.Tests))
		pr.With(rbac.Require("leaderboard:view")).Get("/leaderboard", LeaderboardHandler(d.Tests))

		pr.With(rbac.Require("users:list")).Get("/users", ListUsersHandler(d.Users))
		pr.With(rbac.Require("users:update")).Patch("/users/{userID}", UpdateUserRoleHandler(d.Users, d.Validator))
		pr.With(rbac.Require("user:change_password")).Post("/users/change-password", ChangePasswordHandler(d.Users, d.Validator))

		if d.Events != nil {
			pr.With(rbac.Require("events:view")).Get("/events", ListEventsHandler(d.Events))
		}
	})
}
