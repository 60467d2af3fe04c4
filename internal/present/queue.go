package present

import (
	"context"
	log "log/slog"
	"sync/atomic"

	"vecna/internal/loop"
)

// Surface renders events. Apply is only ever called from Queue.Run.
type Surface interface {
	Apply(ev loop.Event)
}

type SurfaceFunc func(loop.Event)

func (f SurfaceFunc) Apply(ev loop.Event) { f(ev) }

// Queue carries events from the turn loop to the presentation goroutine.
// Emit never blocks; when the buffer is full the event is dropped.
type Queue struct {
	ch      chan loop.Event
	closed  atomic.Bool
	dropped atomic.Uint64
	log     *log.Logger
}

func NewQueue(size int, logger *log.Logger) *Queue {
	if size <= 0 {
		size = 64
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Queue{ch: make(chan loop.Event, size), log: logger}
}

func (q *Queue) Emit(ev loop.Event) {
	if q.closed.Load() {
		return
	}
	select {
	case q.ch <- ev:
	default:
		n := q.dropped.Add(1)
		q.log.Warn("Presentation queue full, event dropped", "dropped", n)
	}
}

// Close must be called by the emitting goroutine once it is done.
func (q *Queue) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.ch)
	}
}

func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// Run drains the queue into the surfaces until Close or ctx is done.
// Events still buffered at Close are delivered before Run returns.
func (q *Queue) Run(ctx context.Context, surfaces ...Surface) {
	for {
		select {
		case ev, ok := <-q.ch:
			if !ok {
				return
			}
			for _, s := range surfaces {
				s.Apply(ev)
			}
		case <-ctx.Done():
			return
		}
	}
}
