package loop

import (
	"errors"

	"vecna/internal/session"
	"vecna/pkg/stt"
)

// Kind is the recovery class of a turn failure.
type Kind int

const (
	// KindUnclassified is logged and shown, never spoken.
	KindUnclassified Kind = iota
	// KindSilent goes straight back to listening.
	KindSilent
	// KindReported speaks a fixed notice before listening again.
	KindReported
)

func (k Kind) String() string {
	switch k {
	case KindSilent:
		return "silent"
	case KindReported:
		return "reported"
	default:
		return "unclassified"
	}
}

func Classify(err error) Kind {
	switch {
	case errors.Is(err, stt.ErrNoSpeech):
		return KindSilent
	case errors.Is(err, stt.ErrServiceUnreachable),
		errors.Is(err, session.ErrAgentUnavailable):
		return KindReported
	default:
		return KindUnclassified
	}
}
