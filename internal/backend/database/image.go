package database

import "time"

const (
	StatusUploaded  = "uploaded"
	StatusProcessed = "processed"

	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

// ImageRecord describes one stored image; Filename points into the blob store.
type ImageRecord struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Brightness float64   `json:"brightness"`
	Contrast   float64   `json:"contrast"`
	Saturation float64   `json:"saturation"`
	Rotation   float64   `json:"rotation"`
	Format     string    `json:"format"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewImageRecord returns a record for a freshly uploaded file with default adjustments.
func NewImageRecord(filename, format string) *ImageRecord {
	if format != FormatPNG {
		format = FormatJPEG
	}
	return &ImageRecord{
		Filename:   filename,
		Brightness: 1,
		Contrast:   1,
		Saturation: 1,
		Rotation:   0,
		Format:     format,
		Status:     StatusUploaded,
	}
}

type UserAccount struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}
