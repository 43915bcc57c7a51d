package server

import (
	"net/http"
	"strings"

	"mycloud/pkg/log"
	"mycloud/pkg/models"
	"mycloud/pkg/users"

	"github.com/labstack/echo/v4"
)

const userContextKey = "mycloud.user"

type loginRequest struct {
	Username string `json:"username"`
}

// sessionMiddleware stores the session user, if any, in the echo context.
// Handlers decide whether a missing user is an error.
func (srv *Server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if userID, ok := srv.sessions.Resolve(ctx.Request()); ok {
			ctx.Set(userContextKey, &models.User{ID: userID})
		}
		return next(ctx)
	}
}

// currentUser returns the session user, or nil for anonymous requests.
func currentUser(ctx echo.Context) *models.User {
	user, _ := ctx.Get(userContextKey).(*models.User)
	return user
}

func (srv *Server) login(ctx echo.Context) error {
	var req loginRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "missing username",
		})
	}
	if err := users.ValidateUserID(username); err != nil {
		log.Warn().Str("user", username).Msg("Rejected login with invalid username")
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid username",
		})
	}

	if _, err := srv.sessions.Issue(ctx.Response(), username); err != nil {
		log.Error().Err(err).Str("user", username).Msg("Failed to issue session")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to create session",
		})
	}

	log.Info().Str("user", username).Msg("User logged in")
	return ctx.JSON(http.StatusOK, map[string]bool{
		"success": true,
	})
}

func (srv *Server) logout(ctx echo.Context) error {
	if user := currentUser(ctx); user != nil {
		log.Info().Str("user", user.ID).Msg("User logged out")
	}
	srv.sessions.Clear(ctx.Response())

	return ctx.JSON(http.StatusOK, map[string]bool{
		"success": true,
	})
}
