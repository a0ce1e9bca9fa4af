package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang/glog"

	api "github.com/mind-engage/mindengage-ielts/internal/api/http"
	auth "github.com/mind-engage/mindengage-ielts/internal/auth/middleware"
	"github.com/mind-engage/mindengage-ielts/internal/config"
	"github.com/mind-engage/mindengage-ielts/internal/db"
	"github.com/mind-engage/mindengage-ielts/internal/exam"
	"github.com/mind-engage/mindengage-ielts/internal/review"
	storage "github.com/mind-engage/mindengage-ielts/internal/storage"
	syncx "github.com/mind-engage/mindengage-ielts/internal/sync"
	"github.com/mind-engage/mindengage-ielts/internal/validate"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional dotenv file read before the environment")
	flag.Parse()
	defer glog.Flush()

	cfg := config.Load(*envFile)

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		glog.Exitf("db open failed: %v", err)
	}
	defer dbh.Close()

	events := syncx.NewEventRepo(dbh)
	tests := syncx.Record(exam.NewSQLStore(dbh), events)
	v := validate.New()
	users := auth.NewUsers(dbh)
	if cfg.AdminPassword == "" {
		glog.Warning("ADMIN_PASSWORD not set; no admin account is bootstrapped")
	} else if err := users.EnsureAdmin(ctx, cfg.AdminUser, cfg.AdminPassword); err != nil {
		glog.Exitf("%v", err)
	}

	bs, err := storage.NewFSStore(cfg.BlobBasePath, cfg.PublicURL+"/assets")
	if err != nil {
		glog.Exitf("blob store: %v", err)
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.Mount(r, api.Deps{
		Tests:      tests,
		Service:    exam.NewService(tests, v),
		Reviews:    review.NewSQLStore(dbh),
		Users:      users,
		Auth:       auth.NewAuthService(cfg.AuthSecret),
		Blobs:      bs,
		Validator:  v,
		Events:     events,
		RoleFromDB: cfg.AuthRoleFromDB,
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		glog.Infof("listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			glog.Exitf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("shutdown: %v", err)
	}
}
