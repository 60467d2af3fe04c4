package audio

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	SampleRate = 16000
	frameSize  = 320 // 20ms
)

var ErrNoDevice = errors.New("no input device")

type RecorderOptions struct {
	// Calibration is how long ambient noise is sampled before listening.
	Calibration time.Duration
	// Pause is the trailing silence that ends an utterance.
	Pause time.Duration
	// MinThreshold is the lowest RMS counted as speech.
	MinThreshold float64
	// Sensitivity multiplies the ambient RMS to get the speech threshold.
	Sensitivity float64
	// Cue, when set, runs right before listening starts.
	Cue    func() error
	Logger *log.Logger
}

func DefaultRecorderOptions() RecorderOptions {
	return RecorderOptions{
		Calibration:  500 * time.Millisecond,
		Pause:        600 * time.Millisecond,
		MinThreshold: 0.015,
		Sensitivity:  3,
	}
}

// Recorder captures one utterance per Listen from the default input device.
type Recorder struct {
	opt RecorderOptions
	log *log.Logger
}

func NewRecorder(opt RecorderOptions) *Recorder {
	def := DefaultRecorderOptions()
	if opt.Calibration <= 0 {
		opt.Calibration = def.Calibration
	}
	if opt.Pause <= 0 {
		opt.Pause = def.Pause
	}
	if opt.MinThreshold <= 0 {
		opt.MinThreshold = def.MinThreshold
	}
	if opt.Sensitivity <= 0 {
		opt.Sensitivity = def.Sensitivity
	}
	if opt.Logger == nil {
		opt.Logger = log.Default()
	}
	return &Recorder{opt: opt, log: opt.Logger}
}

func (r *Recorder) Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: %w", ErrNoDevice, err)
	}
	if _, err := portaudio.DefaultInputDevice(); err != nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: %w", ErrNoDevice, err)
	}
	return nil
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Listen waits for speech without a deadline, then records until a pause
// or until maxDuration of speech has been captured.
func (r *Recorder) Listen(ctx context.Context, maxDuration time.Duration) ([]float32, error) {
	buf := make([]float32, frameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDevice, err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start stream: %w", err)
	}
	defer stream.Stop()

	read := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
			return fmt.Errorf("read stream: %w", err)
		}
		return nil
	}

	var ambient []float64
	for range framesFor(r.opt.Calibration) {
		if err := read(); err != nil {
			return nil, err
		}
		ambient = append(ambient, frameRMS(buf))
	}

	vad := newDetector(calibrate(ambient, r.opt.MinThreshold, r.opt.Sensitivity), r.opt.Pause, maxDuration)
	r.log.Debug("Calibrated", "threshold", vad.threshold)

	if r.opt.Cue != nil {
		if err := r.opt.Cue(); err != nil {
			r.log.Warn("Listening cue failed", "err", err)
		}
	}

	for {
		if err := read(); err != nil {
			return nil, err
		}
		if vad.feed(buf) {
			return vad.utterance(), nil
		}
	}
}

func framesFor(d time.Duration) int {
	return int(d * SampleRate / time.Second / frameSize)
}
