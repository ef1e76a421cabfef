package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// User represents a local LMS user record.
type User struct {
	ID        uuid.UUID
	SubjectID string // identity provider subject
	Email     string
	Name      string
	Role      string // free-form key into the role registry
	SchoolID  *uuid.UUID
	CreatedAt time.Time
}

// UserStore looks up local users by id or identity-provider subject.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindBySubjectID(ctx context.Context, subjectID string) (*User, error)
}

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresUserStore implements UserStore for PostgreSQL
type PostgresUserStore struct {
	db     DB
	logger *slog.Logger
}

// NewPostgresUserStore creates a new PostgreSQL user store
func NewPostgresUserStore(db DB, logger *slog.Logger) *PostgresUserStore {
	return &PostgresUserStore{
		db:     db,
		logger: logger.With("component", "user_store"),
	}
}

const userColumns = `id, subject_id, email, name, role, school_id, created_at`

// FindByID looks up a user by local id.
func (s *PostgresUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		// Malformed ids behave like missing users so stale cache
		// references degrade to re-verification.
		return nil, ErrUserNotFound
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return s.scanUser(ctx, query, userID)
}

// FindBySubjectID looks up a user by identity-provider subject.
func (s *PostgresUserStore) FindBySubjectID(ctx context.Context, subjectID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE subject_id = $1 AND deleted_at IS NULL`
	return s.scanUser(ctx, query, subjectID)
}

func (s *PostgresUserStore) scanUser(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	err := s.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.SubjectID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.SchoolID,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("user lookup failed", "error", err)
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}
