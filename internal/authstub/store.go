package authstub

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id              TEXT PRIMARY KEY,
	email           TEXT NOT NULL UNIQUE,
	password_hash   TEXT NOT NULL,
	name            TEXT NOT NULL DEFAULT '',
	email_confirmed INTEGER NOT NULL DEFAULT 0,
	created_at      TIMESTAMP NOT NULL,
	updated_at      TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
	token      TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id),
	revoked    INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);
`

// Store persists the stub's users and refresh tokens in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and if needed initializes) the SQLite database at path.
// Use ":memory:" for an ephemeral store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// User is a stored account record.
type User struct {
	ID             string
	Email          string
	PasswordHash   string
	Name           string
	EmailConfirmed bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateUser inserts a new account. Returns ErrDuplicateEmail when the
// address is already registered.
func (s *Store) CreateUser(email, passwordHash, name string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := s.db.Exec(
		`INSERT INTO users (id, email, password_hash, name, email_confirmed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.Name, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserByEmail looks an account up by address (case-insensitive).
func (s *Store) GetUserByEmail(email string) (*User, error) {
	return s.getUser(`SELECT id, email, password_hash, name, email_confirmed, created_at, updated_at
		FROM users WHERE email = ?`, strings.ToLower(email))
}

// GetUserByID looks an account up by ID.
func (s *Store) GetUserByID(id string) (*User, error) {
	return s.getUser(`SELECT id, email, password_hash, name, email_confirmed, created_at, updated_at
		FROM users WHERE id = ?`, id)
}

func (s *Store) getUser(query string, arg any) (*User, error) {
	user := &User{}
	var confirmed int
	err := s.db.QueryRow(query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name,
		&confirmed, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	user.EmailConfirmed = confirmed != 0
	return user, nil
}

// UpdateUser changes the password hash and/or name of an account; empty
// fields are left untouched.
func (s *Store) UpdateUser(id, passwordHash, name string) (*User, error) {
	if passwordHash != "" {
		if _, err := s.db.Exec(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
			passwordHash, time.Now().UTC(), id); err != nil {
			return nil, fmt.Errorf("failed to update password: %w", err)
		}
	}
	if name != "" {
		if _, err := s.db.Exec(`UPDATE users SET name = ?, updated_at = ? WHERE id = ?`,
			name, time.Now().UTC(), id); err != nil {
			return nil, fmt.Errorf("failed to update name: %w", err)
		}
	}
	return s.GetUserByID(id)
}

// ConfirmEmail marks an account's address as confirmed.
func (s *Store) ConfirmEmail(id string) error {
	_, err := s.db.Exec(`UPDATE users SET email_confirmed = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to confirm email: %w", err)
	}
	return nil
}

// SaveRefreshToken stores a newly issued refresh token for a user.
func (s *Store) SaveRefreshToken(token, userID string) error {
	_, err := s.db.Exec(`INSERT INTO refresh_tokens (token, user_id, revoked, created_at) VALUES (?, ?, 0, ?)`,
		token, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

// RedeemRefreshToken resolves an unrevoked refresh token to its user and
// revokes it. Refresh tokens are single-use; the caller issues a new one.
func (s *Store) RedeemRefreshToken(token string) (*User, error) {
	var userID string
	err := s.db.QueryRow(`SELECT user_id FROM refresh_tokens WHERE token = ? AND revoked = 0`, token).
		Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	if _, err := s.db.Exec(`UPDATE refresh_tokens SET revoked = 1 WHERE token = ?`, token); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return s.GetUserByID(userID)
}

// RevokeUserTokens revokes every refresh token issued to a user.
func (s *Store) RevokeUserTokens(userID string) error {
	_, err := s.db.Exec(`UPDATE refresh_tokens SET revoked = 1 WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return nil
}
