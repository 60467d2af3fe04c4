package control

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"vecna/internal/tool"
)

var ErrAppNotFound = errors.New("app not found")

func (h *handlers) resolveApp(name string) ([]string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, ErrAppNotFound
	}

	if cmd, ok := h.Apps[key]; ok {
		if fields := strings.Fields(cmd); len(fields) > 0 {
			return fields, nil
		}
	}

	bin := strings.ReplaceAll(key, " ", "-")
	if _, err := h.Runner.LookPath(bin); err != nil {
		return nil, ErrAppNotFound
	}
	return []string{bin}, nil
}

func (h *handlers) openApp(_ context.Context, args tool.Args) (string, error) {
	name := args.String("app_name")

	argv, err := h.resolveApp(name)
	if err != nil {
		return "", err
	}

	if err := h.Runner.Start(argv[0], argv[1:]...); err != nil {
		return "", fmt.Errorf("Error opening %s: %v", name, err)
	}
	return fmt.Sprintf("Opening %s...", name), nil
}

// closeApp only kills what resolveApp knows about, matched by exact process
// name. An unresolved name never reaches pkill.
func (h *handlers) closeApp(ctx context.Context, args tool.Args) (string, error) {
	name := args.String("app_name")

	argv, err := h.resolveApp(name)
	if err != nil {
		return "", err
	}
	target := regexp.QuoteMeta(filepath.Base(argv[0]))

	if _, err := h.Runner.Output(ctx, "pkill", "-x", target); err != nil {
		var exit *exec.ExitError
		if errors.As(err, &exit) && exit.ExitCode() == 1 {
			return "", fmt.Errorf("Could not close %s, it is not running.", name)
		}
		return "", fmt.Errorf("Could not close %s. Error: %v", name, err)
	}
	return fmt.Sprintf("Closing %s...", name), nil
}
