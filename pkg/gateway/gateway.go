// Package gateway implements store.Storage on the local filesystem.
//
// Every user owns two roots, <files_dir>/<id> and <gallery_dir>/<id>. All
// caller paths are resolved through the sandbox package and every write is
// admitted by the quota guard first.
package gateway

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"mycloud/pkg/log"
	"mycloud/pkg/metrics"
	"mycloud/pkg/models"
	"mycloud/pkg/quota"
	"mycloud/pkg/sandbox"
	"mycloud/pkg/store"
)

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// Config holds the namespace base directories.
type Config struct {
	FilesDir   string
	GalleryDir string
}

// Gateway is the filesystem backed storage facade.
type Gateway struct {
	filesDir   string
	galleryDir string
	guard      *quota.Guard
	metrics    metrics.StorageMetrics
}

var _ store.Storage = (*Gateway)(nil)

// New creates a Gateway. The base directories are created if missing and
// upload temp files left behind by an interrupted process are removed.
func New(cfg Config, guard *quota.Guard, m metrics.StorageMetrics) (*Gateway, error) {
	if cfg.FilesDir == "" || cfg.GalleryDir == "" {
		return nil, errors.New("files and gallery directories are required")
	}
	if guard == nil {
		return nil, errors.New("quota guard is required")
	}
	if m == nil {
		m = metrics.NewNoopStorageMetrics()
	}

	for _, dir := range []string{cfg.FilesDir, cfg.GalleryDir} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
		sweepTempFiles(dir)
	}

	return &Gateway{
		filesDir:   cfg.FilesDir,
		galleryDir: cfg.GalleryDir,
		guard:      guard,
		metrics:    m,
	}, nil
}

// sweepTempFiles removes stale upload temp files below dir. Must run before
// the gateway serves requests, since in-flight uploads use the same names.
func sweepTempFiles(dir string) {
	removed := 0
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.Type().IsRegular() || !sandbox.IsTempName(d.Name()) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to remove stale upload file")
			return nil
		}
		removed++
		return nil
	})

	if removed > 0 {
		log.Info().Str("dir", dir).Int("removed", removed).Msg("Removed stale upload files")
	}
}

type userRoots struct {
	files   string
	gallery string
}

func (r userRoots) namespace(ns models.Namespace) (string, error) {
	switch ns {
	case models.NamespaceFiles:
		return r.files, nil
	case models.NamespaceGallery:
		return r.gallery, nil
	}
	return "", fmt.Errorf("unknown namespace %q", ns)
}

// roots returns both storage roots of user, creating them on first access.
func (g *Gateway) roots(user *models.User, operation string) (userRoots, error) {
	files, err := sandbox.UserRoot(g.filesDir, user.ID)
	if err != nil {
		return userRoots{}, g.rejectPath(user, operation, user.ID, err)
	}
	gallery, err := sandbox.UserRoot(g.galleryDir, user.ID)
	if err != nil {
		return userRoots{}, g.rejectPath(user, operation, user.ID, err)
	}

	for _, dir := range []string{files, gallery} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return userRoots{}, fmt.Errorf("failed to create user root %s: %w", dir, err)
		}
	}

	return userRoots{files: files, gallery: gallery}, nil
}

// rejectPath logs and counts a path that failed sandbox resolution.
func (g *Gateway) rejectPath(user *models.User, operation, relative string, err error) error {
	var escapeErr store.PathEscapeError
	if errors.As(err, &escapeErr) {
		log.Warn().
			Str("user", user.ID).
			Str("operation", operation).
			Str("path", relative).
			Msg("Rejected path outside user root")
		g.metrics.RecordPathEscape(operation)
	}
	return err
}
