package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-ielts/internal/db"
	"github.com/mind-engage/mindengage-ielts/internal/rbac"
	"github.com/mind-engage/mindengage-ielts/internal/validate"
)

func openUsers(t *testing.T) *Users {
	t.Helper()
	h, err := db.Open(context.Background(), db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "u.db")+"?_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { h.Close() })
	return NewUsers(h)
}

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("k1")
	tok, err := a.IssueJWT("u1", RoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	c, err := a.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}
	if c.Sub != "u1" || c.Role != RoleStudent {
		t.Errorf("claims %+v", c)
	}
	raw := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, raw); err != nil || raw["sub"] != "u1" {
		t.Errorf("sub claim %v %v", raw["sub"], err)
	}
	if d := c.ExpiresAt.Sub(c.IssuedAt.Time); d != tokenTTL {
		t.Errorf("ttl %v", d)
	}
	if _, err := NewAuthService("k2").Parse(tok); err == nil {
		t.Errorf("token accepted under another key")
	}
}

func TestParseRejectsExpiredAndForeignAlgorithms(t *testing.T) {
	a := NewAuthService("k1")
	old := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Sub: "u1", Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}})
	s, _ := old.SignedString([]byte("k1"))
	if _, err := a.Parse(s); err == nil {
		t.Errorf("expired token accepted")
	}
	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Sub: "u1", Role: RoleAdmin})
	s, _ = none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := a.Parse(s); err == nil {
		t.Errorf("unsigned token accepted")
	}
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("k1")
	var sub, role string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, role = SubjectFromContext(r.Context()), rbac.RoleFromContext(r.Context())
	}))

	tok, _ := a.IssueJWT("u9", RoleAdmin)
	for _, tt := range []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + tok, http.StatusOK},
	} {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status %d want %d", rec.Code, tt.want)
			}
		})
	}
	if sub != "u9" || role != RoleAdmin {
		t.Errorf("context sub=%q role=%q", sub, role)
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	users := openUsers(t)

	u, err := users.Create(ctx, "alice", "correct horse", RoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := users.Create(ctx, "alice", "another one", RoleStudent); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("duplicate: %v", err)
	}
	if _, err := users.Authenticate(ctx, "alice", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong password: %v", err)
	}
	if _, err := users.Authenticate(ctx, "bob", "correct horse"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("unknown user: %v", err)
	}
	if got, err := users.Authenticate(ctx, "alice", "correct horse"); err != nil || got.ID != u.ID {
		t.Errorf("login: %+v %v", got, err)
	}

	if err := users.ChangePassword(ctx, u.ID, "nope", "battery staple"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("change with wrong old: %v", err)
	}
	if err := users.ChangePassword(ctx, u.ID, "correct horse", "battery staple"); err != nil {
		t.Fatal(err)
	}
	if _, err := users.Authenticate(ctx, "alice", "battery staple"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}

	if err := users.EnsureAdmin(ctx, "root", "rootpass1"); err != nil {
		t.Fatal(err)
	}
	if err := users.EnsureAdmin(ctx, "root", "other"); err != nil {
		t.Errorf("second bootstrap: %v", err)
	}
	adm, err := users.Authenticate(ctx, "root", "rootpass1")
	if err != nil || adm.Role != RoleAdmin {
		t.Errorf("admin %+v %v", adm, err)
	}
}

func TestConcurrentCreateYieldsOneAccount(t *testing.T) {
	ctx := context.Background()
	users := openUsers(t)
	const n = 4
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := users.Create(ctx, "dup", "longenough", RoleStudent)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	created := 0
	for err := range errs {
		switch {
		case err == nil:
			created++
		case !errors.Is(err, ErrUsernameTaken):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if created != 1 {
		t.Errorf("created %d accounts", created)
	}
}

func TestSetRole(t *testing.T) {
	ctx := context.Background()
	users := openUsers(t)
	u, err := users.Create(ctx, "alice", "longenough", RoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	if got, err := users.SetRole(ctx, u.ID, RoleAdmin); err != nil || got.Role != RoleAdmin {
		t.Errorf("promote: %+v %v", got, err)
	}
	if _, err := users.SetRole(ctx, u.ID, "teacher"); !errors.Is(err, ErrUnknownRole) {
		t.Errorf("unknown role: %v", err)
	}
	if _, err := users.SetRole(ctx, "ghost", RoleStudent); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user: %v", err)
	}
}

func TestRegisterAndLoginHandlers(t *testing.T) {
	a := NewAuthService("k1")
	users := openUsers(t)
	reg := RegisterHandler(a, users, validate.New())
	login := LoginHandler(a, users)

	do := func(h http.Handler, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		return rec
	}

	if rec := do(reg, `{"username":"al","password":"longenough"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("short username: %d", rec.Code)
	}
	rec := do(reg, `{"username":"alice","password":"longenough"}`)
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"role":"student"`) {
		t.Fatalf("register: %d %s", rec.Code, rec.Body)
	}
	if rec := do(reg, `{"username":"carol","password":"`+strings.Repeat("é", 40)+`"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("password over 72 bytes: %d %s", rec.Code, rec.Body)
	}
	if rec := do(reg, `{"username":"alice","password":"longenough"}`); rec.Code != http.StatusConflict {
		t.Errorf("duplicate register: %d", rec.Code)
	}
	if rec := do(login, `{"username":"alice","password":"nope"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login: %d", rec.Code)
	}
	if rec := do(login, `{"username":"alice","password":"longenough"}`); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "access_token") {
		t.Errorf("login: %d %s", rec.Code, rec.Body)
	}
}

func TestAttachRoleFromDB(t *testing.T) {
	ctx := context.Background()
	users := openUsers(t)
	u, err := users.Create(ctx, "carol", "longenough", RoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	var role string
	h := AttachRoleFromDB(users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role = rbac.RoleFromContext(r.Context())
	}))

	// token claims admin, the table says student
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(rbac.WithRole(WithSubject(ctx, u.ID), RoleAdmin))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || role != RoleStudent {
		t.Errorf("status %d role %q", rec.Code, role)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil).WithContext(WithSubject(ctx, "ghost"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("deleted user: %d", rec.Code)
	}
}
