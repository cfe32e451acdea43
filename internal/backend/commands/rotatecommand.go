package commands

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/jo-hoe/imagehost/internal/backend/commandstructure"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const RotateCommandName = "RotateCommand"

// RotateParams holds a clockwise angle in degrees and the fill used for exposed corners.
type RotateParams struct {
	Angle      float64
	Background string
}

func NewRotateParamsFromMap(params map[string]any) (*RotateParams, error) {
	angle, err := commandstructure.GetFloatParam(params, "angle", 0)
	if err != nil {
		return nil, err
	}
	background := commandstructure.GetStringParam(params, "background", "#000000")
	if _, err := parseHexColor(background); err != nil {
		return nil, err
	}
	return &RotateParams{Angle: angle, Background: background}, nil
}

// RotateCommand rotates clockwise. Multiples of 90 degrees are lossless pixel moves;
// other angles expand the canvas to fit and interpolate bilinearly.
type RotateCommand struct {
	name   string
	params *RotateParams
}

func NewRotateCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewRotateParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &RotateCommand{name: RotateCommandName, params: typedParams}, nil
}

func NewRotateCommandWithParams(angle float64) *RotateCommand {
	return &RotateCommand{
		name:   RotateCommandName,
		params: &RotateParams{Angle: angle, Background: "#000000"},
	}
}

func (c *RotateCommand) Name() string {
	return c.name
}

func (c *RotateCommand) GetParams() *RotateParams {
	return c.params
}

func (c *RotateCommand) Execute(img image.Image) (image.Image, error) {
	angle := normalizeAngle(c.params.Angle)
	if angle == 0 {
		return img, nil
	}

	src := toNRGBA(img)
	slog.Debug("RotateCommand: rotating image",
		"angle", angle,
		"width", src.Bounds().Dx(),
		"height", src.Bounds().Dy())

	switch angle {
	case 90, 180, 270:
		return rotateQuarterTurns(src, int(angle)/90), nil
	}

	background, err := parseHexColor(c.params.Background)
	if err != nil {
		return nil, err
	}
	return rotateArbitrary(src, angle, background), nil
}

// normalizeAngle maps any angle into [0, 360).
func normalizeAngle(angle float64) float64 {
	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}
	return a
}

func rotateQuarterTurns(src *image.NRGBA, turns int) *image.NRGBA {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dstW, dstH := w, h
	if turns%2 == 1 {
		dstW, dstH = h, w
	}
	dst := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))

	parallelRows(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				var dx, dy int
				switch turns {
				case 1:
					// 90° clockwise: (x,y) -> (h-1-y, x)
					dx, dy = h-1-y, x
				case 2:
					dx, dy = w-1-x, h-1-y
				default:
					// 270° clockwise: (x,y) -> (y, w-1-x)
					dx, dy = y, w-1-x
				}
				si := y*src.Stride + x*4
				di := dy*dst.Stride + dx*4
				copy(dst.Pix[di:di+4], src.Pix[si:si+4])
			}
		}
	})
	return dst
}

func rotateArbitrary(src *image.NRGBA, angle float64, background color.Color) *image.NRGBA {
	rad := angle * math.Pi / 180
	sin, cos := math.Sincos(rad)
	w, h := float64(src.Bounds().Dx()), float64(src.Bounds().Dy())

	dstW := int(math.Ceil(math.Abs(w*cos) + math.Abs(h*sin)))
	dstH := int(math.Ceil(math.Abs(w*sin) + math.Abs(h*cos)))
	dst := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	// Source-to-destination transform: move the source center to the origin,
	// rotate clockwise (y axis points down), then move to the destination center.
	scx, scy := w/2, h/2
	dcx, dcy := float64(dstW)/2, float64(dstH)/2
	s2d := f64.Aff3{
		cos, -sin, dcx - cos*scx + sin*scy,
		sin, cos, dcy - sin*scx - cos*scy,
	}
	draw.BiLinear.Transform(dst, s2d, src, src.Bounds(), draw.Over, nil)
	return dst
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(RotateCommandName, NewRotateCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", RotateCommandName, err))
	}
}
