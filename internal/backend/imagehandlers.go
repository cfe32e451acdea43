package backend

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jo-hoe/imagehost/internal/common"
	"github.com/jo-hoe/imagehost/internal/core"
	"github.com/labstack/echo/v4"
)

// updateRequest binds from JSON or form bodies. Fields absent from the body stay nil.
type updateRequest struct {
	Brightness *float64 `json:"brightness" form:"brightness"`
	Contrast   *float64 `json:"contrast" form:"contrast"`
	Saturation *float64 `json:"saturation" form:"saturation"`
	Rotation   *float64 `json:"rotation" form:"rotation"`
	Format     *string  `json:"format" form:"format"`
}

func (s *APIService) uploadHandler(ctx echo.Context) error {
	file, err := ctx.FormFile("image")
	if err != nil {
		slog.Warn("uploadHandler: no uploaded file", "status", http.StatusBadRequest, "error", err)
		return ctx.JSON(http.StatusBadRequest, messageResponse{Message: "No image uploaded"})
	}

	src, err := file.Open()
	if err != nil {
		return imageError(ctx, "uploadHandler", "Failed to save image", fmt.Errorf("failed to open uploaded file: %w", err))
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("uploadHandler: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	record, err := s.imageService.UploadImage(core.UploadInput{
		OriginalName: file.Filename,
		ContentType:  file.Header.Get(echo.HeaderContentType),
		Content:      src,
	})
	if err != nil {
		return imageError(ctx, "uploadHandler", "Failed to save image", err)
	}
	return ctx.JSON(http.StatusCreated, record)
}

func (s *APIService) listImagesHandler(ctx echo.Context) error {
	images, err := s.imageService.ListImages()
	if err != nil {
		return imageError(ctx, "listImagesHandler", "Failed to fetch images", err)
	}
	return ctx.JSON(http.StatusOK, images)
}

func (s *APIService) getImageHandler(ctx echo.Context) error {
	record, err := s.imageService.GetImage(ctx.Param("id"))
	if err != nil {
		return imageError(ctx, "getImageHandler", "Failed to fetch image", err)
	}
	return ctx.JSON(http.StatusOK, record)
}

func (s *APIService) updateImageHandler(ctx echo.Context) error {
	var request updateRequest
	if err := common.BindAndValidate(ctx, &request); err != nil {
		slog.Warn("updateImageHandler: invalid body", "status", http.StatusBadRequest, "error", err)
		return err
	}

	result, err := s.imageService.UpdateImage(ctx.Request().Context(), ctx.Param("id"), core.UpdateInput(request))
	if err != nil {
		return imageError(ctx, "updateImageHandler", "Failed to update image", err)
	}
	return ctx.JSON(http.StatusOK, updateResponse{
		Message:  "Image updated successfully",
		Filename: result.Filename,
		Path:     result.Path,
		Format:   result.Format,
	})
}

func optionalFloat(values url.Values, key string) (*float64, error) {
	if !values.Has(key) || values.Get(key) == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(values.Get(key), 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number, got %q", key, values.Get(key))
	}
	return &value, nil
}

func (s *APIService) downloadImageHandler(ctx echo.Context) error {
	input := core.NewDownloadInput()
	query := ctx.QueryParams()
	input.Format = query.Get("format")
	for key, target := range map[string]*float64{
		"brightness": &input.Brightness,
		"contrast":   &input.Contrast,
		"saturation": &input.Saturation,
		"rotation":   &input.Rotation,
	} {
		value, err := optionalFloat(query, key)
		if err != nil {
			slog.Warn("downloadImageHandler: invalid query", "status", http.StatusBadRequest, "error", err)
			return ctx.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid download parameters", Error: err.Error()})
		}
		if value != nil {
			*target = *value
		}
	}

	err := s.imageService.DownloadImage(ctx.Request().Context(), ctx.Param("id"), input, func(rendition core.Rendition) io.Writer {
		response := ctx.Response()
		response.Header().Set(echo.HeaderContentType, rendition.ContentType)
		response.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", rendition.AttachmentName))
		response.WriteHeader(http.StatusOK)
		return response
	})
	if err != nil {
		if ctx.Response().Committed {
			slog.Error("downloadImageHandler: failed while streaming", "image_id", ctx.Param("id"), "error", err)
			return nil
		}
		return imageError(ctx, "downloadImageHandler", "Image download failed", err)
	}
	return nil
}

func (s *APIService) deleteImageHandler(ctx echo.Context) error {
	if err := s.imageService.DeleteImage(ctx.Param("id")); err != nil {
		return imageError(ctx, "deleteImageHandler", "Failed to delete image", err)
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Image deleted successfully"})
}
