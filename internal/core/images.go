package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jo-hoe/imagehost/internal/backend/commands"
	"github.com/jo-hoe/imagehost/internal/backend/commandstructure"
	"github.com/jo-hoe/imagehost/internal/backend/database"
	"github.com/jo-hoe/imagehost/internal/blobstore"
)

const updatedPrefix = "updated_"

var (
	allowedExtensions = map[string]bool{".jpeg": true, ".jpg": true, ".png": true}
	allowedSubtypes   = map[string]bool{"jpeg": true, "jpg": true, "pjpeg": true, "png": true}
)

type UploadInput struct {
	OriginalName string
	ContentType  string
	Content      io.Reader
}

// UpdateInput carries the adjustments of an in-place edit. A nil field was
// not supplied; percentages use 100 as neutral.
type UpdateInput struct {
	Brightness *float64
	Contrast   *float64
	Saturation *float64
	Rotation   *float64
	Format     *string
}

type UpdateResult struct {
	Filename string
	Path     string
	Format   string
}

// DownloadInput carries the preview adjustments; percentages use 100 as neutral.
type DownloadInput struct {
	Format     string
	Brightness float64
	Contrast   float64
	Saturation float64
	Rotation   float64
}

func NewDownloadInput() DownloadInput {
	return DownloadInput{
		Format:     commands.FormatJPEG,
		Brightness: neutralPercent,
		Contrast:   neutralPercent,
		Saturation: neutralPercent,
	}
}

// Rendition describes a download before its bytes are written.
type Rendition struct {
	Format         string
	ContentType    string
	AttachmentName string
}

func (service *ImageService) UploadImage(in UploadInput) (*database.ImageRecord, error) {
	baseName := path.Base(strings.ReplaceAll(in.OriginalName, `\`, "/"))
	if !isAllowedUpload(baseName, in.ContentType) {
		return nil, fmt.Errorf("%w: name %q, media type %q", ErrInvalidUpload, in.OriginalName, in.ContentType)
	}

	candidate := fmt.Sprintf("%d-%s", service.now().UnixMilli(), baseName)
	if err := blobstore.ValidateName(candidate); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidUpload, err)
	}

	format := database.FormatJPEG
	if strings.Contains(strings.ToLower(in.ContentType), "png") {
		format = database.FormatPNG
	}

	filename, err := service.blobStore.CreateUnique(candidate, in.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload %s: %w", candidate, err)
	}

	record, err := service.databaseService.CreateImage(database.NewImageRecord(filename, format))
	if err != nil {
		if cleanupErr := service.blobStore.Delete(filename); cleanupErr != nil {
			slog.Error("failed to remove blob after record creation failed",
				"filename", filename, "error", cleanupErr)
		}
		return nil, fmt.Errorf("failed to create image record: %w", err)
	}

	slog.Info("image uploaded", "id", record.ID, "filename", filename, "format", format)
	return record, nil
}

func isAllowedUpload(name, contentType string) bool {
	if !allowedExtensions[strings.ToLower(filepath.Ext(name))] {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	category, subtype, found := strings.Cut(mediaType, "/")
	return found && category == "image" && allowedSubtypes[subtype]
}

// UpdateImage applies the adjustments to the stored file and writes the result
// to the "updated_" variant of its filename.
func (service *ImageService) UpdateImage(ctx context.Context, id string, in UpdateInput) (*UpdateResult, error) {
	record, err := service.GetImage(id)
	if err != nil {
		return nil, err
	}

	format := record.Format
	if in.Format != nil {
		if format, err = commands.NormalizeFormat(*in.Format); err != nil {
			return nil, err
		}
	}
	if err := validatePercentages(in.Brightness, in.Saturation); err != nil {
		return nil, err
	}

	var encoded bytes.Buffer
	err = service.pool.Run(ctx, func() error {
		return service.render(ctx, record.Filename, updatePipeline(in), format, &encoded)
	})
	if err != nil {
		return nil, err
	}

	destination := updatedFilename(record.Filename)
	destinationPath, err := service.blobStore.Put(destination, &encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to store updated image %s: %w", destination, err)
	}

	mergeAdjustments(record, in)
	record.Filename = destination
	record.Format = format
	record.Status = database.StatusProcessed
	if err := service.databaseService.UpdateImage(record); err != nil {
		return nil, fmt.Errorf("failed to update image record %s: %w", id, err)
	}

	slog.Info("image updated", "id", id, "filename", destination, "format", format)
	return &UpdateResult{Filename: destination, Path: destinationPath, Format: format}, nil
}

func updatedFilename(filename string) string {
	if strings.HasPrefix(filename, updatedPrefix) {
		return filename
	}
	return updatedPrefix + filename
}

// mergeAdjustments copies supplied values onto the record; omitted ones keep
// their stored value.
func mergeAdjustments(record *database.ImageRecord, in UpdateInput) {
	if in.Brightness != nil {
		record.Brightness = *in.Brightness
	}
	if in.Contrast != nil {
		record.Contrast = *in.Contrast
	}
	if in.Saturation != nil {
		record.Saturation = *in.Saturation
	}
	if in.Rotation != nil {
		record.Rotation = *in.Rotation
	}
}

func validatePercentages(values ...*float64) error {
	for _, value := range values {
		if value != nil && *value < 0 {
			return fmt.Errorf("%w: %v must not be negative", ErrInvalidParameter, *value)
		}
	}
	return nil
}

// DownloadImage renders a preview of the stored image and streams it to the
// writer returned by start. start is called once the rendition is known and
// before any byte is written. Neither store is modified.
func (service *ImageService) DownloadImage(ctx context.Context, id string, in DownloadInput, start func(Rendition) io.Writer) error {
	record, err := service.GetImage(id)
	if err != nil {
		return err
	}

	format := commands.FormatJPEG
	if strings.EqualFold(strings.TrimSpace(in.Format), commands.FormatPNG) {
		format = commands.FormatPNG
	}
	if in.Brightness < 0 || in.Saturation < 0 {
		return fmt.Errorf("%w: brightness and saturation must not be negative", ErrInvalidParameter)
	}

	rendition := Rendition{
		Format:         format,
		ContentType:    commands.ContentType(format),
		AttachmentName: "processed-image." + format,
	}
	return service.pool.Run(ctx, func() error {
		processed, err := service.process(ctx, record.Filename, downloadPipeline(in))
		if err != nil {
			return err
		}
		return commands.EncodeImage(start(rendition), processed, format, service.config.Transforms.JPEGQuality)
	})
}

func (service *ImageService) render(ctx context.Context, filename string, steps []commandstructure.CommandConfig, format string, w io.Writer) error {
	processed, err := service.process(ctx, filename, steps)
	if err != nil {
		return err
	}
	return commands.EncodeImage(w, processed, format, service.config.Transforms.JPEGQuality)
}

func (service *ImageService) process(ctx context.Context, filename string, steps []commandstructure.CommandConfig) (image.Image, error) {
	file, err := service.OpenBlob(filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			slog.Warn("failed to close blob", "filename", filename, "error", cerr)
		}
	}()

	decoded, _, err := commands.DecodeImage(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	processed, err := commandstructure.ExecuteCommands(ctx, decoded, steps)
	if err != nil {
		if errors.Is(err, commandstructure.ErrInvalidParameter) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
		}
		return nil, fmt.Errorf("failed to process %s: %w", filename, err)
	}
	return processed, nil
}

// DeleteImage removes the blob (a missing one is fine) and then the record.
func (service *ImageService) DeleteImage(id string) error {
	record, err := service.GetImage(id)
	if err != nil {
		return err
	}
	if err := service.blobStore.Delete(record.Filename); err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", record.Filename, err)
	}
	if err := service.databaseService.DeleteImage(id); err != nil {
		return fmt.Errorf("failed to delete image record %s: %w", id, err)
	}
	slog.Info("image deleted", "id", id, "filename", record.Filename)
	return nil
}

func (service *ImageService) ListImages() ([]*database.ImageRecord, error) {
	images, err := service.databaseService.GetImages()
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	if images == nil {
		images = []*database.ImageRecord{}
	}
	return images, nil
}

func (service *ImageService) GetImage(id string) (*database.ImageRecord, error) {
	record, err := service.databaseService.GetImageByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", id, err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, id)
	}
	return record, nil
}

// OpenBlob opens a stored file by name. Unknown and malformed names both
// report ErrBlobNotFound.
func (service *ImageService) OpenBlob(filename string) (*os.File, error) {
	file, err := service.blobStore.Open(filename)
	if errors.Is(err, blobstore.ErrNotExist) || errors.Is(err, blobstore.ErrInvalidName) {
		return nil, fmt.Errorf("%w: %w", ErrBlobNotFound, err)
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}
