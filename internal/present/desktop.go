package present

import (
	"context"
	log "log/slog"
	"os/exec"
	"time"

	"vecna/internal/loop"
)

// Desktop raises a notification when the assistant starts listening,
// answers, or hits an error.
type Desktop struct {
	name   string
	notify func(summary, body string) error
	log    *log.Logger
}

func NewDesktop(assistant string, logger *log.Logger) *Desktop {
	if assistant == "" {
		assistant = "Vecna"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Desktop{name: assistant, notify: notifySend(assistant), log: logger}
}

// notifySend goes through the freedesktop notification daemon (mako on sway).
func notifySend(app string) func(summary, body string) error {
	return func(summary, body string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		args := []string{"-a", app, "-t", "3000", summary}
		if body != "" {
			args = append(args, body)
		}
		return exec.CommandContext(ctx, "notify-send", args...).Run()
	}
}

func (d *Desktop) Apply(ev loop.Event) {
	var summary, body string

	switch e := ev.(type) {
	case loop.StatusChanged:
		switch e.Status {
		case loop.Listening, loop.Offline:
			summary = e.Status.String()
		case loop.Error:
			summary, body = e.Status.String(), e.Detail
		default:
			return
		}
	case loop.TranscriptLine:
		if e.Role != loop.RoleAssistant {
			return
		}
		summary, body = d.name, e.Text
	default:
		return
	}

	if err := d.notify(summary, body); err != nil {
		d.log.Debug("Desktop notification failed", "err", err)
	}
}
