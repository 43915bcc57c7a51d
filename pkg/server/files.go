package server

import (
	"net/http"

	"mycloud/pkg/models"

	"github.com/labstack/echo/v4"
)

func (srv *Server) listFiles(ctx echo.Context) error {
	return srv.listNamespace(ctx, models.NamespaceFiles)
}

func (srv *Server) listGallery(ctx echo.Context) error {
	return srv.listNamespace(ctx, models.NamespaceGallery)
}

func (srv *Server) listNamespace(ctx echo.Context, namespace models.Namespace) error {
	tree, err := srv.storage.List(ctx.Request().Context(), currentUser(ctx), namespace)
	if err != nil {
		return storageError(ctx, err, "failed to list files")
	}

	return ctx.JSON(http.StatusOK, tree)
}
