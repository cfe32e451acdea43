package core

import (
	"github.com/jo-hoe/imagehost/internal/backend/commands"
	"github.com/jo-hoe/imagehost/internal/backend/commandstructure"
)

const neutralPercent = 100.0

func modulateStep(brightness, saturation float64) commandstructure.CommandConfig {
	return commandstructure.CommandConfig{
		Name: commands.ModulateCommandName,
		Params: map[string]any{
			"brightness": brightness,
			"saturation": saturation,
		},
	}
}

func rotateStep(angle float64) commandstructure.CommandConfig {
	return commandstructure.CommandConfig{
		Name:   commands.RotateCommandName,
		Params: map[string]any{"angle": angle},
	}
}

func linearStep(multiplier, offset float64) commandstructure.CommandConfig {
	return commandstructure.CommandConfig{
		Name: commands.LinearCommandName,
		Params: map[string]any{
			"multiplier": multiplier,
			"offset":     offset,
		},
	}
}

// applyContrastInPlace is the contrast used when persisting an edit: the
// levels are stretched around mid-grey 128.
func applyContrastInPlace(contrast float64) commandstructure.CommandConfig {
	factor := contrast / neutralPercent
	return linearStep(factor, -(128 * (factor - 1)))
}

// applyContrastPreview is the contrast used for downloads: a plain scale with
// no offset, so it darkens where the in-place variant pivots around grey.
func applyContrastPreview(contrast float64) commandstructure.CommandConfig {
	return linearStep(contrast/neutralPercent, 0)
}

// percentOrNeutral maps an optional percentage to a multiplier, treating an
// absent value as 1.
func percentOrNeutral(value *float64) float64 {
	if value == nil {
		return 1
	}
	return *value / neutralPercent
}

// updatePipeline: modulate, contrast (if given), rotate (if given).
func updatePipeline(in UpdateInput) []commandstructure.CommandConfig {
	steps := []commandstructure.CommandConfig{
		modulateStep(percentOrNeutral(in.Brightness), percentOrNeutral(in.Saturation)),
	}
	if in.Contrast != nil {
		steps = append(steps, applyContrastInPlace(*in.Contrast))
	}
	if in.Rotation != nil {
		steps = append(steps, rotateStep(*in.Rotation))
	}
	return steps
}

// downloadPipeline: rotate, modulate, contrast (unless neutral).
func downloadPipeline(in DownloadInput) []commandstructure.CommandConfig {
	steps := []commandstructure.CommandConfig{
		rotateStep(in.Rotation),
		modulateStep(in.Brightness/neutralPercent, in.Saturation/neutralPercent),
	}
	if in.Contrast != neutralPercent {
		steps = append(steps, applyContrastPreview(in.Contrast))
	}
	return steps
}
