package server

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"mycloud/pkg/log"

	"github.com/labstack/echo/v4"
)

func (srv *Server) downloadFile(ctx echo.Context) error {
	user := currentUser(ctx)
	relativePath := ctx.QueryParam("path")

	result, err := srv.storage.Download(ctx.Request().Context(), user, relativePath)
	if err != nil {
		return storageError(ctx, err, "failed to download file")
	}
	defer func() {
		if err := result.Reader.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close download")
		}
	}()

	log.Info().
		Str("user", user.ID).
		Str("path", relativePath).
		Int64("bytes", result.Size).
		Msg("Serving file download")

	header := ctx.Response().Header()
	header.Set(echo.HeaderContentType, echo.MIMEOctetStream)
	header.Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{
		"filename": result.Name,
	}))

	if seeker, ok := result.Reader.(io.ReadSeeker); ok {
		http.ServeContent(ctx.Response(), ctx.Request(), result.Name, result.ModTime, seeker)
		return nil
	}

	header.Set(echo.HeaderContentLength, strconv.FormatInt(result.Size, 10))
	return ctx.Stream(http.StatusOK, echo.MIMEOctetStream, result.Reader)
}
