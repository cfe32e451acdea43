package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/imagehost/internal/backend/commandstructure"
)

const LinearCommandName = "LinearCommand"

// LinearParams describes the levels transform output = input*Multiplier + Offset.
type LinearParams struct {
	Multiplier float64
	Offset     float64
}

func NewLinearParamsFromMap(params map[string]any) (*LinearParams, error) {
	multiplier, err := commandstructure.GetFloatParam(params, "multiplier", 1)
	if err != nil {
		return nil, err
	}
	offset, err := commandstructure.GetFloatParam(params, "offset", 0)
	if err != nil {
		return nil, err
	}
	return &LinearParams{Multiplier: multiplier, Offset: offset}, nil
}

// LinearCommand applies a per-channel linear transform to the color channels.
type LinearCommand struct {
	name   string
	params *LinearParams
}

func NewLinearCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewLinearParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &LinearCommand{name: LinearCommandName, params: typedParams}, nil
}

func NewLinearCommandWithParams(multiplier, offset float64) *LinearCommand {
	return &LinearCommand{
		name:   LinearCommandName,
		params: &LinearParams{Multiplier: multiplier, Offset: offset},
	}
}

func (c *LinearCommand) Name() string {
	return c.name
}

func (c *LinearCommand) GetParams() *LinearParams {
	return c.params
}

func (c *LinearCommand) Execute(img image.Image) (image.Image, error) {
	a := c.params.Multiplier
	b := c.params.Offset
	if a == 1 && b == 0 {
		return img, nil
	}

	slog.Debug("LinearCommand: applying linear transform",
		"multiplier", a,
		"offset", b,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())

	return mapRGB(toNRGBA(img), func(r, g, bl float64) (float64, float64, float64) {
		return r*a + b, g*a + b, bl*a + b
	}), nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(LinearCommandName, NewLinearCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", LinearCommandName, err))
	}
}
