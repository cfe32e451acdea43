package core

import (
	"errors"

	"github.com/jo-hoe/imagehost/internal/backend/commands"
)

var (
	ErrImageNotFound    = errors.New("image not found")
	ErrBlobNotFound     = errors.New("image file not found")
	ErrInvalidUpload    = errors.New("only JPEG and PNG images are allowed")
	ErrInvalidParameter = errors.New("invalid adjustment parameter")
	ErrPoolBusy         = errors.New("transform pool is saturated")

	ErrUnsupportedFormat = commands.ErrUnsupportedFormat
)
