// Package whispercpp transcribes speech locally with whisper.cpp.
package whispercpp

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"vecna/pkg/stt"
)

// Markers whisper emits for non-speech input.
var noiseMarkers = []string{"[BLANK_AUDIO]", "[SILENCE]", "(silence)", "[MUSIC]"}

type Options struct {
	Language      string // "auto", "en", "ru"...
	TranslateToEn bool
	Threads       int // <=0 => NumCPU()
	InitialPrompt string
	BeamSize      int // 0 = greedy
	Temperature   float32
	Logger        *log.Logger
}

type Transcriber struct {
	mu    sync.Mutex
	model whisper.Model
	opt   Options
	log   *log.Logger
}

func NewTranscriber(modelPath string, opt Options) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	if opt.Language == "" {
		opt.Language = "auto"
	}
	if opt.Threads <= 0 {
		opt.Threads = runtime.NumCPU()
	}
	logger := opt.Logger
	if logger == nil {
		logger = log.Default()
	}

	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model %s: %w", modelPath, err)
	}
	return &Transcriber{model: m, opt: opt, log: logger}, nil
}

func (t *Transcriber) Close() error {
	if t.model == nil {
		return nil
	}
	return t.model.Close()
}

// Transcribe returns the spoken text of a 16 kHz mono utterance in [-1, 1],
// or stt.ErrNoSpeech when whisper hears nothing.
func (t *Transcriber) Transcribe(ctx context.Context, pcm []float32) (string, error) {
	if len(pcm) == 0 {
		return "", stt.ErrNoSpeech
	}

	// contexts share the model's compute buffers
	t.mu.Lock()
	defer t.mu.Unlock()

	wctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper context: %w", err)
	}
	if err := t.configure(wctx); err != nil {
		return "", err
	}

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper process: %w", err)
	}

	var parts []string
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper segment: %w", err)
		}
		parts = append(parts, seg.Text)
	}

	text := Clean(strings.Join(parts, " "))
	t.log.Debug("Whisper finished", "segments", len(parts), "language", wctx.DetectedLanguage())
	if text == "" {
		return "", stt.ErrNoSpeech
	}
	return text, nil
}

func (t *Transcriber) configure(wctx whisper.Context) error {
	if err := wctx.SetLanguage(t.opt.Language); err != nil {
		return fmt.Errorf("whisper language %q: %w", t.opt.Language, err)
	}
	wctx.SetTranslate(t.opt.TranslateToEn)
	wctx.SetThreads(uint(t.opt.Threads))

	if t.opt.BeamSize > 0 {
		wctx.SetBeamSize(t.opt.BeamSize)
	}
	if t.opt.InitialPrompt != "" {
		wctx.SetInitialPrompt(t.opt.InitialPrompt)
	}
	if t.opt.Temperature != 0 {
		wctx.SetTemperature(t.opt.Temperature)
	}
	return nil
}

// Clean strips non-speech markers and collapses whitespace.
func Clean(text string) string {
	for _, m := range noiseMarkers {
		text = strings.ReplaceAll(text, m, "")
	}
	return strings.Join(strings.Fields(text), " ")
}
