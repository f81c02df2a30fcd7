package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	pkgutil "github.com/faciam-dev/guidecms/pkg/util"
)

// ErrInvalidCredentials is returned when a username or password does not
// match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// User represents an application user.
type User struct {
	ID           uint64 `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
}

// Subject is the token subject of u.
func (u User) Subject() string { return strconv.FormatUint(u.ID, 10) }

// UserRepo provides access to the users table.
type UserRepo struct {
	DB          *sql.DB
	Driver      string
	TablePrefix string
}

func (r *UserRepo) table() string { return r.TablePrefix + "users" }

func (r *UserRepo) ready() error {
	if r == nil || r.DB == nil {
		return fmt.Errorf("repo not initialized")
	}
	return nil
}

// GetByUsername returns a user by name, or nil when none exists.
func (r *UserRepo) GetByUsername(ctx context.Context, name string) (*User, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT id, username, password_hash, role FROM %s WHERE username = %s", r.table(), pkgutil.Placeholder(r.Driver, 1))
	var u User
	if err := r.DB.QueryRowContext(ctx, q, name).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// List returns every user ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]User, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf("SELECT id, username, password_hash, role FROM %s ORDER BY id", r.table()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Create hashes password with bcrypt and inserts the user.
func (r *UserRepo) Create(ctx context.Context, username, password, role string) (User, error) {
	if err := r.ready(); err != nil {
		return User{}, err
	}
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, errors.New("username and password are required")
	}
	if role == "" {
		role = "editor"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	u := User{Username: username, PasswordHash: string(hash), Role: role}
	stmt := fmt.Sprintf("INSERT INTO %s (username, password_hash, role) VALUES (%s)", r.table(), pkgutil.Placeholders(r.Driver, 1, 3))
	if r.Driver == "postgres" {
		err = r.DB.QueryRowContext(ctx, stmt+" RETURNING id", u.Username, u.PasswordHash, u.Role).Scan(&u.ID)
	} else {
		var res sql.Result
		res, err = r.DB.ExecContext(ctx, stmt, u.Username, u.PasswordHash, u.Role)
		if err == nil {
			var id int64
			id, err = res.LastInsertId()
			u.ID = uint64(id)
		}
	}
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Authenticate returns the user when password matches its stored hash.
func (r *UserRepo) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := r.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
