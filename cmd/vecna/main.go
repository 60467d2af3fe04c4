package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"vecna/internal/config"
	"vecna/internal/control"
	"vecna/internal/ipc"
	"vecna/internal/loop"
	"vecna/internal/nlu"
	"vecna/internal/present"
	"vecna/internal/proxy"
	"vecna/internal/session"
	"vecna/internal/tool"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	cfgFile := cli.StringP("config", "c", "vecna.yaml", "Config file path")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address, overrides config")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	inputs := cli.StringSliceP("input", "i", nil, "Replay audio files instead of the microphone")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevelMap[*logLevel],
		TimeFormat: time.TimeOnly,
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Error("OPENAI_API_KEY not set")
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Error("Failed to load config", "path", *cfgFile, "err", err)
		os.Exit(1)
	}
	if *proxyAddr != "" {
		cfg.Proxy = *proxyAddr
	}

	log.Debug("Loaded config", "name", cfg.Name, "stt", cfg.STT.Backend)

	httpClient, err := proxy.NewHTTPClient(cfg.Proxy, 0)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.Proxy, "err", err)
		os.Exit(1)
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
	)

	reg := tool.NewRegistry()
	if err := control.Register(reg, control.Deps{
		HTTP:          httpClient,
		Apps:          cfg.Apps,
		ScreenshotDir: cfg.ScreenshotDir,
		Logger:        log.With("component", "control"),
	}); err != nil {
		log.Error("Failed to register tools", "err", err)
		os.Exit(1)
	}

	log.Debug("Loaded tools", "count", reg.Len())

	agent := nlu.New(client, nlu.Options{
		Model:        cfg.Agent.Model,
		SystemPrompt: cfg.Agent.SystemPrompt,
		Logger:       log.With("component", "nlu"),
	})
	sess := session.New(agent, reg, session.Options{
		MaxHops: cfg.Agent.MaxHops,
		Logger:  log.With("component", "session"),
	})

	capture, closeCapture, err := newCapture(cfg, *inputs)
	if err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer closeCapture()

	log.Debug("Loaded capture", "replay", len(*inputs) > 0)

	transcriber, closeTranscriber, err := newTranscriber(cfg, client)
	if err != nil {
		log.Error("Failed to init transcriber", "backend", cfg.STT.Backend, "err", err)
		os.Exit(1)
	}
	defer closeTranscriber()

	log.Debug("Loaded transcriber", "backend", cfg.STT.Backend)

	queue := present.NewQueue(cfg.Present.Queue, log.With("component", "present"))
	board := present.NewStatusBoard()
	surfaces, closeSurfaces := newSurfaces(cfg, board)
	defer closeSurfaces()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := ipc.Listen(cfg.Present.Socket, controlHandler(board), log.With("component", "ipc"))
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	go srv.Serve(ctx)
	defer srv.Close()

	l, err := loop.New(loop.Config{
		Capture:      capture,
		Transcriber:  transcriber,
		Speaker:      newSpeaker(cfg),
		Conversation: sess,
		Events:       queue,
		Exit:         loop.NewExitMatcher(cfg.ExitKeywords...),
		MaxUtterance: cfg.Audio.MaxUtterance,
		RetryDelay:   cfg.Audio.Retry,
		Phrases: loop.Phrases{
			Greeting:        cfg.Phrases.Greeting,
			Farewell:        cfg.Phrases.Farewell,
			ConnectionError: cfg.Phrases.ConnectionError,
		},
		Logger: log.With("component", "loop"),
	})
	if err != nil {
		log.Error("Failed to build loop", "err", err)
		os.Exit(1)
	}

	log.Info("Boot up - successful", "socket", srv.Path())

	go func() {
		defer queue.Close()
		if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Loop stopped", "err", err)
		}
	}()

	// the presentation surfaces own the main goroutine until the loop closes the queue
	queue.Run(context.Background(), surfaces...)

	if n := queue.Dropped(); n > 0 {
		log.Warn("Presentation events dropped", "count", n)
	}
	log.Info("Shut down")
}
