package server

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"mycloud/pkg/log"
	"mycloud/pkg/models"

	"github.com/labstack/echo/v4"
)

const uploadFormField = "file"

func (srv *Server) uploadFiles(ctx echo.Context) error {
	user := currentUser(ctx)
	if user == nil {
		return ctx.JSON(http.StatusUnauthorized, map[string]string{
			"error": "unauthenticated",
		})
	}

	relativeDir := strings.TrimSpace(ctx.QueryParam("path"))
	log.Info().Str("user", user.ID).Str("path", relativeDir).Msg("File upload request received")

	headers, err := formFiles(ctx)
	if err != nil {
		log.Error().Err(err).Str("user", user.ID).Msg("Failed to parse multipart form")
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid multipart form",
		})
	}

	payloads := make([]models.Payload, 0, len(headers))
	files := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, file := range files {
			if err := file.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close uploaded file")
			}
		}
	}()

	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			log.Error().Err(err).Str("name", header.Filename).Msg("Failed to open uploaded file")
			return ctx.JSON(http.StatusInternalServerError, map[string]string{
				"error": "failed to open uploaded file",
			})
		}
		files = append(files, file)
		payloads = append(payloads, models.Payload{
			Name:    header.Filename,
			Size:    header.Size,
			Content: file,
		})
	}

	if err := srv.storage.Upload(ctx.Request().Context(), user, relativeDir, payloads); err != nil {
		return storageError(ctx, err, "failed to upload files")
	}

	return ctx.JSON(http.StatusOK, map[string]bool{
		"success": true,
	})
}

// formFiles returns the parts named "file". A request without a multipart
// body carries no files.
func formFiles(ctx echo.Context) ([]*multipart.FileHeader, error) {
	form, err := ctx.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	return form.File[uploadFormField], nil
}
