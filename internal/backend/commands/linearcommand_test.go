package commands

import (
	"image"
	"image/color"
	"testing"
)

func TestLinearCommand_Execute(t *testing.T) {
	src := solidImage(2, 2, color.NRGBA{R: 100, G: 200, B: 10, A: 255})

	tests := []struct {
		name       string
		multiplier float64
		offset     float64
		want       color.NRGBA
	}{
		{
			name:       "contrast with mid-gray pivot",
			multiplier: 1.5,
			offset:     -64,
			want:       color.NRGBA{R: 86, G: 236, B: 0, A: 255},
		},
		{
			name:       "scale without offset",
			multiplier: 1.5,
			offset:     0,
			want:       color.NRGBA{R: 150, G: 255, B: 15, A: 255},
		},
		{
			name:       "offset only",
			multiplier: 1,
			offset:     20,
			want:       color.NRGBA{R: 120, G: 220, B: 30, A: 255},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewLinearCommandWithParams(tt.multiplier, tt.offset).Execute(src)
			if err != nil {
				t.Fatalf("Execute error: %v", err)
			}
			assertPixel(t, out, 1, 1, tt.want)
		})
	}
}

func TestLinearCommand_IdentityIsNoOp(t *testing.T) {
	src := solidImage(1, 1, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	out, err := NewLinearCommandWithParams(1, 0).Execute(src)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out != image.Image(src) {
		t.Error("Expected identity transform to return the input image")
	}
}

func TestNewLinearCommand_FromMap(t *testing.T) {
	command, err := NewLinearCommand(map[string]any{"multiplier": 0.5})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	params := command.(*LinearCommand).GetParams()
	if params.Multiplier != 0.5 || params.Offset != 0 {
		t.Errorf("Unexpected params: %+v", params)
	}

	if _, err := NewLinearCommand(map[string]any{"offset": "low"}); err == nil {
		t.Error("Expected error for non-numeric offset")
	}
}
