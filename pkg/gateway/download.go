package gateway

import (
	"context"
	"os"

	"mycloud/pkg/log"
	"mycloud/pkg/metrics"
	"mycloud/pkg/models"
	"mycloud/pkg/sandbox"
	"mycloud/pkg/store"
)

// Download opens the regular file at relativePath below the user's files root.
// The caller owns the returned reader.
func (g *Gateway) Download(_ context.Context, user *models.User, relativePath string) (*store.DownloadResult, error) {
	if user == nil {
		return nil, store.UnauthenticatedError{}
	}

	roots, err := g.roots(user, "download")
	if err != nil {
		g.metrics.RecordDownload(metrics.StatusRejected, 0)
		return nil, err
	}

	fullPath, err := sandbox.Resolve(roots.files, relativePath)
	if err != nil {
		g.metrics.RecordDownload(metrics.StatusRejected, 0)
		return nil, g.rejectPath(user, "download", relativePath, err)
	}

	info, err := os.Stat(fullPath)
	if err != nil || !info.Mode().IsRegular() || sandbox.IsTempName(info.Name()) {
		log.Debug().Str("user", user.ID).Str("path", relativePath).Msg("Download target not found")
		g.metrics.RecordDownload(metrics.StatusNotFound, 0)
		return nil, store.NotFoundError{Path: relativePath}
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			g.metrics.RecordDownload(metrics.StatusNotFound, 0)
			return nil, store.NotFoundError{Path: relativePath}
		}
		log.Error().Err(err).Str("user", user.ID).Str("file_path", fullPath).Msg("Failed to open file")
		g.metrics.RecordDownload(metrics.StatusError, 0)
		return nil, err
	}

	log.Info().
		Str("user", user.ID).
		Str("path", relativePath).
		Int64("bytes", info.Size()).
		Msg("Serving download")
	g.metrics.RecordDownload(metrics.StatusSuccess, info.Size())

	return &store.DownloadResult{
		Reader:  file,
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}
