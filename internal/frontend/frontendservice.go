package frontend

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jo-hoe/imagehost/internal/core"
	"github.com/labstack/echo/v4"
)

// FrontendService serves stored files as they are, without authentication.
type FrontendService struct {
	imageService *core.ImageService
	config       *core.ServiceConfig
}

func NewFrontendService(config *core.ServiceConfig, imageService *core.ImageService) *FrontendService {
	return &FrontendService{
		imageService: imageService,
		config:       config,
	}
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.GET(service.config.PathPrefix+"/image/:filename", service.imageByFilenameHandler)

	publicPrefix := "/" + strings.Trim(service.config.BlobStore.PublicPrefix, "/")
	e.GET(publicPrefix+"/*", service.publicFileHandler)
}

func (service *FrontendService) imageByFilenameHandler(ctx echo.Context) error {
	return service.serveBlob(ctx, ctx.Param("filename"), "imageByFilenameHandler")
}

func (service *FrontendService) publicFileHandler(ctx echo.Context) error {
	return service.serveBlob(ctx, ctx.Param("*"), "publicFileHandler")
}

func (service *FrontendService) serveBlob(ctx echo.Context, filename, handler string) error {
	file, err := service.imageService.OpenBlob(filename)
	if errors.Is(err, core.ErrBlobNotFound) {
		slog.Warn(handler+": file not available", "status", http.StatusNotFound, "filename", filename)
		return ctx.JSON(http.StatusNotFound, map[string]string{"message": "Image not found"})
	}
	if err != nil {
		slog.Error(handler+": failed to open file", "status", http.StatusInternalServerError, "filename", filename, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to read image"})
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			slog.Error(handler+": failed to close file", "error", cerr, "filename", filename)
		}
	}()

	info, err := file.Stat()
	if err != nil {
		slog.Error(handler+": failed to stat file", "status", http.StatusInternalServerError, "filename", filename, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to read image"})
	}

	// updated_ files are rewritten in place, so clients must revalidate
	ctx.Response().Header().Set("Cache-Control", "no-cache")
	http.ServeContent(ctx.Response(), ctx.Request(), info.Name(), info.ModTime(), file)
	return nil
}
