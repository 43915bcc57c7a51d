package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mycloud/pkg/log"
	"mycloud/pkg/metrics"
	"mycloud/pkg/models"
	"mycloud/pkg/sandbox"
	"mycloud/pkg/store"
)

// Upload stores payloads in relativeDir below the user's files root.
//
// The total payload size is admitted by the quota guard before anything is
// touched; paths and names are validated before the first write. Existing
// files with the same name are replaced. On a write failure the files
// already stored stay in place.
func (g *Gateway) Upload(ctx context.Context, user *models.User, relativeDir string, payloads []models.Payload) error {
	if user == nil {
		return store.UnauthenticatedError{}
	}

	log.Info().
		Str("user", user.ID).
		Str("path", relativeDir).
		Int("files", len(payloads)).
		Msg("Processing upload")

	var extraBytes int64
	for _, payload := range payloads {
		if payload.Size < 0 {
			return fmt.Errorf("invalid size %d for %q", payload.Size, payload.Name)
		}
		extraBytes += payload.Size
	}

	roots, err := g.roots(user, "upload")
	if err != nil {
		g.metrics.RecordUpload(metrics.StatusRejected, 0, 0)
		return err
	}

	unlock := g.guard.Lock(user.ID)
	defer unlock()

	decision, err := g.guard.Admit(ctx, *user, extraBytes, roots.files, roots.gallery)
	if err != nil {
		log.Error().Err(err).Str("user", user.ID).Msg("Quota check failed")
		g.metrics.RecordUpload(metrics.StatusError, 0, 0)
		return err
	}
	if !decision.Admitted {
		log.Warn().
			Str("user", user.ID).
			Int64("used", decision.Used).
			Int64("bytes", decision.Requested).
			Int64("max", decision.Max).
			Msg("Upload rejected by quota")
		g.metrics.RecordUpload(metrics.StatusRejected, 0, 0)
		return store.QuotaExceededError{
			Used:      decision.Used,
			Requested: decision.Requested,
			Max:       decision.Max,
		}
	}

	target, err := sandbox.Resolve(roots.files, relativeDir)
	if err != nil {
		g.metrics.RecordUpload(metrics.StatusRejected, 0, 0)
		return g.rejectPath(user, "upload", relativeDir, err)
	}

	names := make([]string, len(payloads))
	for i, payload := range payloads {
		name, err := sandbox.SanitizeName(payload.Name)
		if err != nil {
			log.Warn().Str("user", user.ID).Str("name", payload.Name).Msg("Rejected upload file name")
			g.metrics.RecordUpload(metrics.StatusRejected, 0, 0)
			return err
		}
		names[i] = name
	}

	if err := os.MkdirAll(target, dirPerm); err != nil {
		log.Error().Err(err).Str("user", user.ID).Str("target_dir", target).Msg("Failed to create target directory")
		g.metrics.RecordUpload(metrics.StatusError, 0, 0)
		return store.WriteError{Path: relativeDir, Err: err}
	}

	var written int64
	for i, payload := range payloads {
		destination := filepath.Join(target, names[i])
		if err := writeFile(destination, payload); err != nil {
			log.Error().Err(err).Str("user", user.ID).Str("file_path", destination).Msg("Failed to store file")
			g.metrics.RecordUpload(metrics.StatusError, i, written)
			return store.WriteError{Path: filepath.Join(relativeDir, names[i]), Err: err}
		}
		written += payload.Size
	}

	log.Info().
		Str("user", user.ID).
		Str("path", relativeDir).
		Int("files", len(payloads)).
		Int64("bytes", written).
		Msg("Upload stored")
	g.metrics.RecordUpload(metrics.StatusSuccess, len(payloads), written)
	return nil
}

// writeFile streams payload into a temporary file next to destination and
// renames it into place. The payload must yield exactly payload.Size bytes.
func writeFile(destination string, payload models.Payload) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(destination), sandbox.TempFilePattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	content := payload.Content
	if content == nil {
		content = bytes.NewReader(nil)
	}

	n, err := io.Copy(tmp, io.LimitReader(content, payload.Size+1))
	if err != nil {
		return err
	}
	if n != payload.Size {
		return fmt.Errorf("payload %q declared %d bytes but yielded %d", payload.Name, payload.Size, n)
	}

	if err = tmp.Chmod(filePerm); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, destination)
}
