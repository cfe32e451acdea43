package backend

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jo-hoe/imagehost/internal/auth"
	"github.com/labstack/echo/v4"
)

const identityContextKey = "identity"

// requireAuth resolves the token cookie to an identity and stores it on the context.
func (s *APIService) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		token := ""
		if cookie, err := ctx.Cookie(tokenCookieName); err == nil {
			token = cookie.Value
		}

		identity, err := s.authService.Authenticate(ctx.Request().Context(), token)
		switch {
		case err == nil:
			ctx.Set(identityContextKey, identity)
			return next(ctx)
		case errors.Is(err, auth.ErrUnauthenticated):
			return ctx.JSON(http.StatusUnauthorized, statusResponse{Message: "Login to access this resource"})
		case errors.Is(err, auth.ErrInvalidToken):
			slog.Debug("requireAuth: rejected token", "error", err)
			return ctx.JSON(http.StatusUnauthorized, statusResponse{Message: "Invalid or expired token"})
		case errors.Is(err, auth.ErrUserNotFound):
			return ctx.JSON(http.StatusNotFound, statusResponse{Message: "User not found"})
		default:
			slog.Error("requireAuth: failed to authenticate", "error", err)
			return ctx.JSON(http.StatusInternalServerError, messageResponse{Message: "Authentication failed", Error: err.Error()})
		}
	}
}

func identityFrom(ctx echo.Context) *auth.Identity {
	identity, _ := ctx.Get(identityContextKey).(*auth.Identity)
	return identity
}
