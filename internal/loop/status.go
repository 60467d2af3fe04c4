package loop

import "time"

type Status int

const (
	Idle Status = iota
	Listening
	Transcribing
	Conversing
	ExecutingTool
	Speaking
	Error
	Offline
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "Ready"
	case Listening:
		return "Listening..."
	case Transcribing:
		return "Processing..."
	case Conversing:
		return "Thinking..."
	case ExecutingTool:
		return "Working..."
	case Speaking:
		return "Speaking..."
	case Error:
		return "Error"
	case Offline:
		return "Offline"
	default:
		return "Unknown"
	}
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
	RoleError     Role = "error"
)

// Event is an immutable message from the loop to the presentation side.
type Event interface {
	When() time.Time
}

type StatusChanged struct {
	Status Status
	Detail string
	At     time.Time
}

func (e StatusChanged) When() time.Time { return e.At }

type TranscriptLine struct {
	Role Role
	Text string
	At   time.Time
}

func (e TranscriptLine) When() time.Time { return e.At }

// Emitter must not block the loop.
type Emitter interface {
	Emit(Event)
}

type discard struct{}

func (discard) Emit(Event) {}
