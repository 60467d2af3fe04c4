package audio

import (
	"context"
	log "log/slog"
	"time"

	"vecna/pkg/audioconv"
)

// FileSource replays recorded utterances in order, then blocks until the
// context ends. It stands in for the microphone on machines without one.
type FileSource struct {
	paths []string
	next  int
	log   *log.Logger
}

func NewFileSource(logger *log.Logger, paths ...string) *FileSource {
	if logger == nil {
		logger = log.Default()
	}
	return &FileSource{paths: paths, log: logger}
}

func (f *FileSource) Listen(ctx context.Context, maxDuration time.Duration) ([]float32, error) {
	if f.next >= len(f.paths) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	path := f.paths[f.next]
	f.next++

	opt := audioconv.Options{}
	if maxDuration > 0 {
		opt.MaxSamples = int(maxDuration.Seconds() * SampleRate)
	}

	pcm, err := audioconv.DecodeFile(ctx, path, opt)
	if err != nil {
		return nil, err
	}

	f.log.Debug("Replayed", "file", path, "samples", len(pcm))
	return pcm, nil
}
