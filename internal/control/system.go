package control

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"vecna/internal/tool"
)

// One spoken "louder" is five 2% key presses.
const volumeStep = "10%"

const defaultSink = "@DEFAULT_SINK@"

func (h *handlers) controlVolume(ctx context.Context, args tool.Args) (string, error) {
	var (
		argv []string
		msg  string
	)
	switch args.String("action") {
	case "up":
		argv, msg = []string{"set-sink-volume", defaultSink, "+" + volumeStep}, "Volume increased."
	case "down":
		argv, msg = []string{"set-sink-volume", defaultSink, "-" + volumeStep}, "Volume decreased."
	case "mute":
		argv, msg = []string{"set-sink-mute", defaultSink, "toggle"}, "Volume muted."
	default:
		return "", errors.New("Invalid volume command.")
	}

	if _, err := h.Runner.Output(ctx, "pactl", argv...); err != nil {
		h.Logger.Warn("pactl failed", "args", argv, "err", err)
		return "", errors.New("Volume control failed.")
	}
	return msg, nil
}

func (h *handlers) setBrightness(ctx context.Context, args tool.Args) (string, error) {
	level, err := args.Int("level")
	if err != nil {
		return "", err
	}
	if level < 0 || level > 100 {
		return "", fmt.Errorf("Brightness must be between 0 and 100, got %d.", level)
	}

	if _, err := h.Runner.Output(ctx, "brightnessctl", "set", fmt.Sprintf("%d%%", level)); err != nil {
		h.Logger.Warn("brightnessctl failed", "err", err)
		return "", errors.New("Brightness control failed.")
	}
	return fmt.Sprintf("Brightness set to %d%%.", level), nil
}

func (h *handlers) takeScreenshot(ctx context.Context, _ tool.Args) (string, error) {
	name := "screenshot_" + h.Now().Format("2006-01-02_15-04-05") + ".png"
	path := filepath.Join(h.ScreenshotDir, name)

	if _, err := h.Runner.Output(ctx, "grim", path); err != nil {
		h.Logger.Warn("grim failed", "err", err)
		return "", errors.New("Screenshot failed.")
	}

	h.Logger.Info("Screenshot saved", "path", path)
	return "Screenshot taken.", nil
}

func (h *handlers) getTime(context.Context, tool.Args) (string, error) {
	return h.Now().Format("03:04 PM"), nil
}

func (h *handlers) getDate(context.Context, tool.Args) (string, error) {
	return h.Now().Format("Monday, January 02, 2006"), nil
}
