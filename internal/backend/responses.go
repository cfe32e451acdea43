package backend

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jo-hoe/imagehost/internal/core"
	"github.com/labstack/echo/v4"
)

type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type updateResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Format   string `json:"format"`
}

// imageError translates image service errors into responses. failureMessage
// is used for anything that is not a client error.
func imageError(ctx echo.Context, handler string, failureMessage string, err error) error {
	status, body := http.StatusInternalServerError, messageResponse{Message: failureMessage, Error: err.Error()}
	switch {
	case errors.Is(err, core.ErrImageNotFound):
		status, body = http.StatusNotFound, messageResponse{Message: "Image not found"}
	case errors.Is(err, core.ErrBlobNotFound):
		status, body = http.StatusNotFound, messageResponse{Message: "Image file not found"}
	case errors.Is(err, core.ErrInvalidUpload):
		status, body = http.StatusBadRequest, messageResponse{Message: "Only JPEG and PNG images are allowed"}
	case errors.Is(err, core.ErrUnsupportedFormat), errors.Is(err, core.ErrInvalidParameter):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrPoolBusy):
		status, body = http.StatusServiceUnavailable, messageResponse{Message: "Server is busy, try again later"}
	}

	if status >= http.StatusInternalServerError {
		slog.Error(handler+": request failed", "status", status, "error", err)
	} else {
		slog.Warn(handler+": request rejected", "status", status, "error", err)
	}
	return ctx.JSON(status, body)
}
