package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (srv *Server) quotaStatus(ctx echo.Context) error {
	status, err := srv.storage.QuotaStatus(ctx.Request().Context(), currentUser(ctx))
	if err != nil {
		return storageError(ctx, err, "failed to read quota")
	}

	return ctx.JSON(http.StatusOK, status)
}
