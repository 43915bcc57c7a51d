package server

import (
	"errors"
	"net/http"

	"mycloud/pkg/log"
	"mycloud/pkg/store"

	"github.com/labstack/echo/v4"
)

// storageError translates a storage error into a status code and JSON body.
// fallback is the message used for unexpected failures.
func storageError(ctx echo.Context, err error, fallback string) error {
	var (
		unauthenticatedErr store.UnauthenticatedError
		pathEscapeErr      store.PathEscapeError
		quotaErr           store.QuotaExceededError
		invalidNameErr     store.InvalidNameError
		notFoundErr        store.NotFoundError
	)

	switch {
	case errors.As(err, &unauthenticatedErr):
		return ctx.JSON(http.StatusUnauthorized, map[string]string{
			"error": "unauthenticated",
		})
	case errors.As(err, &pathEscapeErr):
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid path",
		})
	case errors.As(err, &quotaErr):
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "quota exceeded",
		})
	case errors.As(err, &invalidNameErr):
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid file name",
		})
	case errors.As(err, &notFoundErr):
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "not found",
		})
	}

	log.Error().Err(err).Str("uri", ctx.Request().RequestURI).Msg(fallback)
	return ctx.JSON(http.StatusInternalServerError, map[string]string{
		"error": fallback,
	})
}
