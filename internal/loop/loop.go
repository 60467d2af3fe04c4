package loop

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"vecna/internal/session"
	"vecna/internal/tool"
	"vecna/pkg/stt"
)

const (
	DefaultMaxUtterance = 10 * time.Second

	// DefaultRetryDelay spaces out Listen attempts while capture keeps failing.
	DefaultRetryDelay = time.Second
)

type Capture interface {
	Listen(ctx context.Context, maxDuration time.Duration) ([]float32, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
}

// Speaker blocks until playback is over, so the microphone never hears it.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

type Conversation interface {
	Submit(ctx context.Context, text string) (session.Result, error)
	Reset()
}

type Phrases struct {
	Greeting        string
	Farewell        string
	ConnectionError string
}

func DefaultPhrases() Phrases {
	return Phrases{
		Greeting:        "System online. Vecna is ready.",
		Farewell:        "Goodbye.",
		ConnectionError: "Internet connection error.",
	}
}

type Config struct {
	Capture      Capture
	Transcriber  Transcriber
	Speaker      Speaker
	Conversation Conversation
	Events       Emitter
	Exit         *ExitMatcher
	MaxUtterance time.Duration
	RetryDelay   time.Duration
	Phrases      Phrases
	Logger       *log.Logger
	Now          func() time.Time
}

// Loop runs capture, transcribe, converse and speak strictly in sequence on
// the goroutine that calls Run. It is the only writer of its status.
type Loop struct {
	capture      Capture
	transcriber  Transcriber
	speaker      Speaker
	conv         Conversation
	events       Emitter
	exit         *ExitMatcher
	maxUtterance time.Duration
	retryDelay   time.Duration
	phrases      Phrases
	log          *log.Logger
	now          func() time.Time

	status Status
	detail string
}

func New(cfg Config) (*Loop, error) {
	switch {
	case cfg.Capture == nil:
		return nil, errors.New("loop: capture is required")
	case cfg.Transcriber == nil:
		return nil, errors.New("loop: transcriber is required")
	case cfg.Speaker == nil:
		return nil, errors.New("loop: speaker is required")
	case cfg.Conversation == nil:
		return nil, errors.New("loop: conversation is required")
	}

	if cfg.Events == nil {
		cfg.Events = discard{}
	}
	if cfg.Exit == nil {
		cfg.Exit = NewExitMatcher()
	}
	if cfg.MaxUtterance <= 0 {
		cfg.MaxUtterance = DefaultMaxUtterance
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	def := DefaultPhrases()
	if cfg.Phrases.Greeting == "" {
		cfg.Phrases.Greeting = def.Greeting
	}
	if cfg.Phrases.Farewell == "" {
		cfg.Phrases.Farewell = def.Farewell
	}
	if cfg.Phrases.ConnectionError == "" {
		cfg.Phrases.ConnectionError = def.ConnectionError
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	l := &Loop{
		capture:      cfg.Capture,
		transcriber:  cfg.Transcriber,
		speaker:      cfg.Speaker,
		conv:         cfg.Conversation,
		events:       cfg.Events,
		exit:         cfg.Exit,
		maxUtterance: cfg.MaxUtterance,
		retryDelay:   cfg.RetryDelay,
		phrases:      cfg.Phrases,
		log:          cfg.Logger,
		now:          cfg.Now,
		status:       -1,
	}

	if o, ok := cfg.Conversation.(interface{ Observe(session.Observer) }); ok {
		o.Observe(toolObserver{l})
	}

	return l, nil
}

// Run returns nil after the exit command, or ctx.Err() once ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.setStatus(Idle, "")
	l.say(ctx, RoleSystem, l.phrases.Greeting)

	for {
		if err := ctx.Err(); err != nil {
			l.log.Info("Loop cancelled")
			l.setStatus(Offline, "")
			return err
		}
		if l.turn(ctx) {
			return nil
		}
	}
}

func (l *Loop) turn(ctx context.Context) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			l.fail(ctx, fmt.Errorf("panic: %v", r))
			done = false
		}
	}()

	l.setStatus(Listening, "")

	pcm, err := l.capture.Listen(ctx, l.maxUtterance)
	if err != nil {
		l.fail(ctx, fmt.Errorf("listen: %w", err))
		l.sleep(ctx, l.retryDelay)
		return false
	}

	l.log.Debug("Recorded", "samples", len(pcm))
	l.setStatus(Transcribing, "")

	text, err := l.transcriber.Transcribe(ctx, pcm)
	if err != nil {
		l.fail(ctx, fmt.Errorf("transcribe: %w", err))
		return false
	}

	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		l.fail(ctx, stt.ErrNoSpeech)
		return false
	}

	l.log.Info("Transcribed", "text", text)
	l.emit(TranscriptLine{Role: RoleUser, Text: text})

	if l.exit.Match(text) {
		l.setStatus(Speaking, "")
		l.say(ctx, RoleAssistant, l.phrases.Farewell)
		l.setStatus(Offline, "")
		l.log.Info("Exit requested")
		return true
	}

	l.setStatus(Conversing, "")

	res, err := l.conv.Submit(ctx, text)
	if err != nil {
		l.fail(ctx, fmt.Errorf("converse: %w", err))
		return false
	}

	l.log.Info("Replied", "tools", len(res.Invocations), "text", res.Reply)

	l.setStatus(Speaking, "")
	l.say(ctx, RoleAssistant, res.Reply)
	l.setStatus(Idle, "")
	return false
}

func (l *Loop) fail(ctx context.Context, err error) {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return
	}

	switch Classify(err) {
	case KindSilent:
		l.log.Debug("No speech detected")
		l.setStatus(Listening, "no speech detected")

	case KindReported:
		l.log.Warn("Service unreachable", "err", err)
		if errors.Is(err, session.ErrAgentUnavailable) {
			l.conv.Reset()
		}
		l.setStatus(Error, "connection error")
		l.say(ctx, RoleSystem, l.phrases.ConnectionError)

	default:
		l.log.Error("Turn failed", "err", err)
		l.emit(TranscriptLine{Role: RoleError, Text: err.Error()})
		l.setStatus(Error, "unexpected error")
	}
}

func (l *Loop) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// say speaks text; playback failures are logged and swallowed.
func (l *Loop) say(ctx context.Context, role Role, text string) {
	if text == "" {
		return
	}

	l.emit(TranscriptLine{Role: role, Text: text})

	if err := l.speaker.Speak(ctx, text); err != nil {
		l.log.Error("Failed to voice out", "err", err)
	}
}

func (l *Loop) setStatus(s Status, detail string) {
	if s == l.status && detail == l.detail {
		return
	}
	l.status, l.detail = s, detail
	l.emit(StatusChanged{Status: s, Detail: detail})
}

func (l *Loop) emit(ev Event) {
	switch e := ev.(type) {
	case StatusChanged:
		e.At = l.now()
		ev = e
	case TranscriptLine:
		e.At = l.now()
		ev = e
	}
	l.events.Emit(ev)
}

type toolObserver struct{ l *Loop }

func (o toolObserver) ToolStarted(call tool.Call) {
	o.l.setStatus(ExecutingTool, call.Name)
}

func (o toolObserver) ToolFinished(res tool.Result) {
	o.l.emit(TranscriptLine{Role: RoleTool, Text: res.Name + ": " + res.Text()})
	o.l.setStatus(Conversing, "")
}
