package tts

import (
	"context"
	log "log/slog"
)

type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Ducker lowers competing audio for the length of an utterance.
type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

// Ducked wraps a Speaker so other streams are quieter while it talks.
// Ducking failures never stop speech.
type Ducked struct {
	speaker Speaker
	ducker  Ducker
	log     *log.Logger
}

func NewDucked(s Speaker, d Ducker, logger *log.Logger) *Ducked {
	if logger == nil {
		logger = log.Default()
	}
	return &Ducked{speaker: s, ducker: d, log: logger}
}

func (d *Ducked) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	if err := d.ducker.Duck(ctx); err != nil {
		d.log.Warn("Failed to duck", "err", err)
	}
	defer func() {
		// restore even when ctx is already cancelled
		if err := d.ducker.Restore(context.WithoutCancel(ctx)); err != nil {
			d.log.Warn("Failed to restore volume", "err", err)
		}
	}()

	return d.speaker.Speak(ctx, text)
}
