package backend

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jo-hoe/imagehost/internal/auth"
	"github.com/jo-hoe/imagehost/internal/common"
	"github.com/labstack/echo/v4"
)

type registerRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Email    string `json:"email" form:"email" validate:"required"`
	Password string `json:"password" form:"password" validate:"required,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

func (s *APIService) registerHandler(ctx echo.Context) error {
	var request registerRequest
	if err := common.BindAndValidate(ctx, &request); err != nil {
		return err
	}

	session, err := s.authService.Register(ctx.Request().Context(), request.Username, request.Email, request.Password)
	switch {
	case errors.Is(err, auth.ErrDuplicateEmail):
		return ctx.JSON(http.StatusBadRequest, messageResponse{Message: "Email already exists."})
	case errors.Is(err, auth.ErrDuplicateUsername):
		return ctx.JSON(http.StatusBadRequest, messageResponse{Message: "Username already exists."})
	case errors.Is(err, auth.ErrPasswordTooLong):
		return ctx.JSON(http.StatusBadRequest, messageResponse{Message: "Password must be at most 72 bytes."})
	case err != nil:
		slog.Error("registerHandler: failed to register user", "status", http.StatusInternalServerError, "error", err)
		return ctx.JSON(http.StatusInternalServerError, messageResponse{Message: "An error occurred during registration."})
	}

	ctx.SetCookie(&http.Cookie{
		Name:     tokenCookieName,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   int(s.config.Auth.RegisterTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})
	return ctx.JSON(http.StatusCreated, messageResponse{Message: "User registered successfully and authenticated."})
}

// loginHandler leaves SameSite unset on its cookie, unlike registration.
func (s *APIService) loginHandler(ctx echo.Context) error {
	var request loginRequest
	if err := common.BindAndValidate(ctx, &request); err != nil {
		return err
	}

	session, err := s.authService.Login(ctx.Request().Context(), request.Email, request.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return ctx.JSON(http.StatusBadRequest, statusResponse{Success: false, Message: "Invalid email or password"})
	}
	if err != nil {
		slog.Error("loginHandler: failed to log in", "status", http.StatusInternalServerError, "error", err)
		return ctx.JSON(http.StatusInternalServerError, statusResponse{Success: false, Message: err.Error()})
	}

	ctx.SetCookie(&http.Cookie{
		Name:     tokenCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
	})
	return ctx.JSON(http.StatusOK, statusResponse{Success: true, Message: "Logged In Successfully"})
}

func (s *APIService) logoutHandler(ctx echo.Context) error {
	if identity := identityFrom(ctx); identity != nil {
		if err := s.authService.Logout(ctx.Request().Context(), identity.SessionID); err != nil {
			slog.Error("logoutHandler: failed to revoke session", "status", http.StatusInternalServerError, "error", err)
			return ctx.JSON(http.StatusInternalServerError, statusResponse{Success: false, Message: err.Error()})
		}
	}

	ctx.SetCookie(&http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now(),
		MaxAge:   -1,
		HttpOnly: true,
	})
	return ctx.JSON(http.StatusOK, statusResponse{Success: true, Message: "Logged Out Successfully"})
}
