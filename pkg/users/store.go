// Package users keeps the role of every storage identity in SQLite.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"mycloud/pkg/models"
	"mycloud/pkg/quota"

	_ "modernc.org/sqlite"
)

// userIDPattern allows IDs usable as a single directory name.
// The first character must be alphanumeric, which excludes "." and "..".
var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Record is a stored directory entry.
type Record struct {
	models.User
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store manages user roles in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ quota.Directory = (*Store)(nil)

// NewStore opens or creates the user database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	database, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrDatabaseError, err)
	}

	ctx := context.Background()

	if _, err := database.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to enable WAL mode: %w", ErrDatabaseError, err)
	}

	if _, err := database.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to set busy timeout: %w", ErrDatabaseError, err)
	}

	store := &Store{db: database}
	if err := store.Initialize(ctx); err != nil {
		_ = database.Close()
		return nil, err
	}

	return store, nil
}

// Initialize creates the database schema.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("%w: failed to initialize schema: %w", ErrDatabaseError, err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ValidateUserID checks that id can name a storage root.
func ValidateUserID(id string) error {
	if id == "" || len(id) > userIDMaxLength {
		return ErrInvalidUserID
	}
	if !userIDPattern.MatchString(id) {
		return ErrInvalidUserID
	}
	return nil
}

// Role returns the role of userID. Users without an entry are plain users.
func (s *Store) Role(ctx context.Context, userID string) (models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var role string
	err := s.db.QueryRowContext(ctx, `SELECT role FROM users WHERE id = ?`, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RoleUser, nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return models.Role(role), nil
}

// SetRole creates or updates the entry of userID.
func (s *Store) SetRole(ctx context.Context, userID string, role models.Role) (*Record, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := upsert(ctx, s.db, userID, role, time.Now().UTC()); err != nil {
		return nil, err
	}

	return s.get(ctx, userID)
}

// Get retrieves the entry of userID.
func (s *Store) Get(ctx context.Context, userID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.get(ctx, userID)
}

func (s *Store) get(ctx context.Context, userID string) (*Record, error) {
	record := &Record{}
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, role, created_at, updated_at FROM users WHERE id = ?`,
		userID,
	).Scan(&record.ID, &role, &record.CreatedAt, &record.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	record.Role = models.Role(role)
	return record, nil
}

// Delete removes the entry of userID. The user falls back to the plain role.
func (s *Store) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// List returns all entries ordered by ID.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, role, created_at, updated_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var record Record
		var role string
		if err := rows.Scan(&record.ID, &role, &record.CreatedAt, &record.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}
		record.Role = models.Role(role)
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return records, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, userID string, role models.Role, now time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, role, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		 role = excluded.role,
		 updated_at = excluded.updated_at`,
		userID, string(role), now, now,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return nil
}
