// Package auth is the built-in authentication module: users, refresh
// sessions and the /auth endpoints.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/toyz/fastpress/pkg/fastpress"
)

var (
	ErrUserNotFound    = errors.New("auth: user not found")
	ErrInvalidPassword = errors.New("auth: invalid password")
	ErrEmailInUse      = errors.New("auth: email already in use")
	ErrSessionNotFound = errors.New("auth: session not found")
)

// User is a stored account. Password holds the bcrypt hash and is never
// serialized.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Password  string    `db:"password" json:"-"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Principal returns the user as exposed to handlers.
func (u *User) Principal() *fastpress.Principal {
	return &fastpress.Principal{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Session is a refresh token bound to a user.
type Session struct {
	ID        string    `db:"id"`
	Token     string    `db:"token"`
	UserID    string    `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
}

// Store persists users and sessions.
type Store interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id string) (*User, error)
	CreateUser(ctx context.Context, u *User) error

	FindSession(ctx context.Context, id string) (*Session, error)
	FindSessionByToken(ctx context.Context, token string) (*Session, error)
	CreateSession(ctx context.Context, s *Session) error
	UpdateSession(ctx context.Context, s *Session) error
	DeleteSessionByToken(ctx context.Context, token string) error
}

const (
	userColumns    = "id, email, password, name, created_at, updated_at"
	sessionColumns = "id, token, user_id, expires_at"
)

// SQLStore is a Store over the users and sessions tables.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.findUser(ctx, "email", email)
}

func (s *SQLStore) FindUserByID(ctx context.Context, id string) (*User, error) {
	return s.findUser(ctx, "id", id)
}

func (s *SQLStore) findUser(ctx context.Context, column, value string) (*User, error) {
	var u User
	query := s.db.Rebind("SELECT " + userColumns + " FROM users WHERE " + column + " = ?")
	if err := s.db.GetContext(ctx, &u, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("auth: find user by %s: %w", column, err)
	}
	return &u, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, u *User) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO users (id, email, password, name, created_at, updated_at)
		VALUES (:id, :email, :password, :name, :created_at, :updated_at)`, u)
	if err != nil {
		return fmt.Errorf("auth: create user: %w", err)
	}
	return nil
}

func (s *SQLStore) FindSession(ctx context.Context, id string) (*Session, error) {
	return s.findSession(ctx, "id", id)
}

func (s *SQLStore) FindSessionByToken(ctx context.Context, token string) (*Session, error) {
	return s.findSession(ctx, "token", token)
}

func (s *SQLStore) findSession(ctx context.Context, column, value string) (*Session, error) {
	var sess Session
	query := s.db.Rebind("SELECT " + sessionColumns + " FROM sessions WHERE " + column + " = ?")
	if err := s.db.GetContext(ctx, &sess, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("auth: find session by %s: %w", column, err)
	}
	return &sess, nil
}

func (s *SQLStore) CreateSession(ctx context.Context, sess *Session) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO sessions (id, token, user_id, expires_at) VALUES (:id, :token, :user_id, :expires_at)`, sess)
	if err != nil {
		return fmt.Errorf("auth: create session: %w", err)
	}
	return nil
}

func (s *SQLStore) UpdateSession(ctx context.Context, sess *Session) error {
	res, err := s.db.NamedExecContext(ctx,
		`UPDATE sessions SET token = :token, expires_at = :expires_at WHERE id = :id`, sess)
	if err != nil {
		return fmt.Errorf("auth: update session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *SQLStore) DeleteSessionByToken(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM sessions WHERE token = ?"), token)
	if err != nil {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
