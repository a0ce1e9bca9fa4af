package auth

import (
	"context"
	"database/sql"
	"slices"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-ielts/internal/db"
	"github.com/mind-engage/mindengage-ielts/internal/rbac"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"

	bcryptCost = 12
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameTaken  = errors.New("username already taken")
	ErrBadCredentials = errors.New("invalid credentials")
	ErrWrongPassword  = errors.New("incorrect old password")
	ErrUnknownRole    = errors.New("unknown role")
)

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"createdAt"`
}

// Users reads and writes the users table.
type Users struct{ db *sql.DB }

func NewUsers(db *sql.DB) *Users { return &Users{db: db} }

// Create relies on the username UNIQUE constraint so concurrent
// registrations of one name yield exactly one account.
func (u *Users) Create(ctx context.Context, username, password, role string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return User{}, err
	}
	usr := User{ID: uuid.NewString(), Username: username, Role: role, CreatedAt: time.Now().Unix()}
	_, err = u.db.ExecContext(ctx, `INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5)`,
		usr.ID, usr.Username, string(hash), usr.Role, usr.CreatedAt)
	if db.IsUniqueViolation(err) {
		return User{}, ErrUsernameTaken
	}
	if err != nil {
		return User{}, errors.Wrap(err, "insert user")
	}
	return usr, nil
}

func (u *Users) Get(ctx context.Context, id string) (User, error) {
	var usr User
	err := u.db.QueryRowContext(ctx, `SELECT id, username, role, created_at FROM users WHERE id=$1`, id).
		Scan(&usr.ID, &usr.Username, &usr.Role, &usr.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, errors.Wrap(err, "get user")
	}
	return usr, nil
}

// Authenticate returns ErrBadCredentials for an unknown username as well as
// a wrong password.
func (u *Users) Authenticate(ctx context.Context, username, password string) (User, error) {
	var (
		usr  User
		hash string
	)
	err := u.db.QueryRowContext(ctx, `SELECT id, username, role, created_at, password_hash FROM users WHERE username=$1`, username).
		Scan(&usr.ID, &usr.Username, &usr.Role, &usr.CreatedAt, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrBadCredentials
	}
	if err != nil {
		return User{}, errors.Wrap(err, "lookup user")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrBadCredentials
	}
	return usr, nil
}

func (u *Users) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	var stored string
	err := u.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id=$1`, id).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return errors.Wrap(err, "lookup user")
	}
	if bcrypt.CompareHashAndPassword([]byte(stored), []byte(oldPassword)) != nil {
		return ErrWrongPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}
	_, err = u.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, string(hash), id)
	return errors.Wrap(err, "update password")
}

// EnsureAdmin creates the bootstrap admin when no user has that username.
// An existing account is left untouched.
func (u *Users) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	_, err := u.Create(ctx, username, password, RoleAdmin)
	switch {
	case err == nil:
		glog.Infof("created admin user %q", username)
		return nil
	case errors.Is(err, ErrUsernameTaken):
		return nil
	default:
		return errors.Wrap(err, "bootstrap admin")
	}
}

// List returns users ordered by username, optionally restricted to one role.
func (u *Users) List(ctx context.Context, role string) ([]User, error) {
	q := `SELECT id, username, role, created_at FROM users`
	var args []any
	if role != "" {
		q += ` WHERE role=$1`
		args = append(args, role)
	}
	rows, err := u.db.QueryContext(ctx, q+` ORDER BY username`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		var usr User
		if err := rows.Scan(&usr.ID, &usr.Username, &usr.Role, &usr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, usr)
	}
	return out, rows.Err()
}

// SetRole changes a user's role to one the access policy knows.
func (u *Users) SetRole(ctx context.Context, id, role string) (User, error) {
	if !slices.Contains(rbac.Default.Roles(), role) {
		return User{}, errors.Wrapf(ErrUnknownRole, "%q", role)
	}
	res, err := u.db.ExecContext(ctx, `UPDATE users SET role=$1 WHERE id=$2`, role, id)
	if err != nil {
		return User{}, errors.Wrap(err, "update role")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return User{}, ErrUserNotFound
	}
	return u.Get(ctx, id)
}
