package present

import (
	"sync"
	"time"

	"vecna/internal/loop"
)

type Snapshot struct {
	Status   loop.Status
	Detail   string
	Since    time.Time
	LastUser string
	LastBot  string
}

// StatusBoard keeps the latest state for readers on other goroutines,
// such as the control socket.
type StatusBoard struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewStatusBoard() *StatusBoard {
	return &StatusBoard{snap: Snapshot{Status: loop.Idle, Since: time.Now()}}
}

func (b *StatusBoard) Apply(ev loop.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch e := ev.(type) {
	case loop.StatusChanged:
		b.snap.Status = e.Status
		b.snap.Detail = e.Detail
		b.snap.Since = e.At
	case loop.TranscriptLine:
		switch e.Role {
		case loop.RoleUser:
			b.snap.LastUser = e.Text
		case loop.RoleAssistant:
			b.snap.LastBot = e.Text
		}
	}
}

func (b *StatusBoard) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}
