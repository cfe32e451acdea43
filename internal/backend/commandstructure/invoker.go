package commandstructure

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"
)

// CommandInvoker executes a sequence of commands on a decoded image
type CommandInvoker struct {
	commands []Command
}

func NewCommandInvoker(commands []Command) *CommandInvoker {
	return &CommandInvoker{
		commands: commands,
	}
}

// Execute applies all commands in sequence. The context is checked between commands.
func (i *CommandInvoker) Execute(ctx context.Context, img image.Image) (image.Image, error) {
	start := time.Now()

	if len(i.commands) == 0 {
		slog.Debug("no commands to execute, returning original image")
		return img, nil
	}

	current := img
	for idx, command := range i.commands {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline cancelled before command %s (index %d): %w", command.Name(), idx, err)
		}
		commandStart := time.Now()

		processed, err := command.Execute(current)
		if err != nil {
			slog.Error("command execution failed",
				"index", idx,
				"command_name", command.Name(),
				"error", err)
			return nil, fmt.Errorf("command %s (index %d) failed: %w", command.Name(), idx, err)
		}

		slog.Debug("command completed",
			"index", idx,
			"command_name", command.Name(),
			"duration_ms", time.Since(commandStart).Milliseconds(),
			"width", processed.Bounds().Dx(),
			"height", processed.Bounds().Dy())

		current = processed
	}

	slog.Info("image processing pipeline completed",
		"total_duration_ms", time.Since(start).Milliseconds(),
		"command_count", len(i.commands))

	return current, nil
}

// BuildCommands instantiates the configured commands from the given registry
func BuildCommands(registry *CommandRegistry, commandConfigs []CommandConfig) ([]Command, error) {
	commands := make([]Command, 0, len(commandConfigs))
	for i, config := range commandConfigs {
		command, err := registry.Create(config.Name, config.Params)
		if err != nil {
			return nil, fmt.Errorf("failed to create command at index %d (%s): %w", i, config.Name, err)
		}
		commands = append(commands, command)
	}
	return commands, nil
}

// ExecuteCommands builds the configured commands from DefaultRegistry and applies them in order
func ExecuteCommands(ctx context.Context, img image.Image, commandConfigs []CommandConfig) (image.Image, error) {
	commands, err := BuildCommands(DefaultRegistry, commandConfigs)
	if err != nil {
		return nil, err
	}
	return NewCommandInvoker(commands).Execute(ctx, img)
}
