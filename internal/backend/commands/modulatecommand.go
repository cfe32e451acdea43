package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/imagehost/internal/backend/commandstructure"
)

const ModulateCommandName = "ModulateCommand"

// ModulateParams holds brightness and saturation multipliers; 1 leaves the image unchanged.
type ModulateParams struct {
	Brightness float64
	Saturation float64
}

func NewModulateParamsFromMap(params map[string]any) (*ModulateParams, error) {
	brightness, err := commandstructure.GetFloatParam(params, "brightness", 1)
	if err != nil {
		return nil, err
	}
	saturation, err := commandstructure.GetFloatParam(params, "saturation", 1)
	if err != nil {
		return nil, err
	}
	return newModulateParams(brightness, saturation)
}

func newModulateParams(brightness, saturation float64) (*ModulateParams, error) {
	if brightness < 0 {
		return nil, fmt.Errorf("%w: brightness must not be negative, got %v", commandstructure.ErrInvalidParameter, brightness)
	}
	if saturation < 0 {
		return nil, fmt.Errorf("%w: saturation must not be negative, got %v", commandstructure.ErrInvalidParameter, saturation)
	}
	return &ModulateParams{Brightness: brightness, Saturation: saturation}, nil
}

// ModulateCommand scales saturation against Rec. 601 luma, then scales brightness.
type ModulateCommand struct {
	name   string
	params *ModulateParams
}

func NewModulateCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewModulateParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &ModulateCommand{name: ModulateCommandName, params: typedParams}, nil
}

func NewModulateCommandWithParams(brightness, saturation float64) (*ModulateCommand, error) {
	typedParams, err := newModulateParams(brightness, saturation)
	if err != nil {
		return nil, err
	}
	return &ModulateCommand{name: ModulateCommandName, params: typedParams}, nil
}

func (c *ModulateCommand) Name() string {
	return c.name
}

func (c *ModulateCommand) GetParams() *ModulateParams {
	return c.params
}

func (c *ModulateCommand) Execute(img image.Image) (image.Image, error) {
	brightness := c.params.Brightness
	saturation := c.params.Saturation
	if brightness == 1 && saturation == 1 {
		slog.Debug("ModulateCommand: neutral parameters; returning input")
		return img, nil
	}

	slog.Debug("ModulateCommand: modulating image",
		"brightness", brightness,
		"saturation", saturation,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())

	return mapRGB(toNRGBA(img), func(r, g, b float64) (float64, float64, float64) {
		luma := 0.299*r + 0.587*g + 0.114*b
		r = (luma + (r-luma)*saturation) * brightness
		g = (luma + (g-luma)*saturation) * brightness
		b = (luma + (b-luma)*saturation) * brightness
		return r, g, b
	}), nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(ModulateCommandName, NewModulateCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", ModulateCommandName, err))
	}
}
