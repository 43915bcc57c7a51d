package store

import (
	"context"
	"fmt"
	"io"
	"time"

	"mycloud/pkg/models"
)

// DownloadResult is an open file handed to the transport layer.
// The caller must close Reader.
type DownloadResult struct {
	Reader  io.ReadCloser
	Name    string
	Size    int64
	ModTime time.Time
}

// Storage defines the per-user storage operations exposed to the HTTP layer.
// Every method returns UnauthenticatedError when user is nil.
type Storage interface {
	// List returns the directory tree of the given namespace of the user.
	List(ctx context.Context, user *models.User, namespace models.Namespace) (*models.DirectoryTree, error)

	// Upload admits the payloads against the user's quota and writes them into
	// relativeDir below the user's files root, overwriting files with the same name.
	Upload(ctx context.Context, user *models.User, relativeDir string, payloads []models.Payload) error

	// Download opens the regular file at relativePath below the user's files root.
	Download(ctx context.Context, user *models.User, relativePath string) (*DownloadResult, error)

	// QuotaStatus reports the user's role, bytes used and budget.
	QuotaStatus(ctx context.Context, user *models.User) (*models.QuotaStatus, error)
}

// UnauthenticatedError is returned when an operation is attempted without a user.
type UnauthenticatedError struct{}

func (e UnauthenticatedError) Error() string {
	return "unauthenticated"
}

// PathEscapeError is returned when a relative path resolves outside its root.
type PathEscapeError struct {
	Root     string
	Relative string
}

func (e PathEscapeError) Error() string {
	return "path escapes storage root"
}

// QuotaExceededError is returned when a write would exceed the user's budget.
type QuotaExceededError struct {
	Used      int64
	Requested int64
	Max       int64
}

func (e QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %d used + %d requested > %d", e.Used, e.Requested, e.Max)
}

// NotFoundError is returned when the requested file does not exist or is not a regular file.
type NotFoundError struct {
	Path string
}

func (e NotFoundError) Error() string {
	return "file not found"
}

// InvalidNameError is returned when an uploaded file name is empty after sanitizing.
type InvalidNameError struct {
	Name string
}

func (e InvalidNameError) Error() string {
	return "invalid file name"
}

// WriteError wraps a filesystem failure while storing an uploaded file.
type WriteError struct {
	Path string
	Err  error
}

func (e WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e WriteError) Unwrap() error {
	return e.Err
}
