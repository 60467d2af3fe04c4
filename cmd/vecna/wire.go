package main

import (
	"os"
	"strings"

	log "log/slog"

	openai "github.com/openai/openai-go/v3"

	"vecna/internal/audio"
	"vecna/internal/config"
	"vecna/internal/ipc"
	"vecna/internal/loop"
	"vecna/internal/notify"
	"vecna/internal/present"
	"vecna/internal/tts"
	"vecna/pkg/stt"
	"vecna/pkg/stt/whispercpp"
)

func newCapture(cfg *config.Config, inputs []string) (loop.Capture, func(), error) {
	if len(inputs) > 0 {
		return audio.NewFileSource(log.With("component", "audio"), inputs...), func() {}, nil
	}

	opt := audio.RecorderOptions{
		Calibration: cfg.Audio.Calibration,
		Pause:       cfg.Audio.Pause,
		Sensitivity: cfg.Audio.Sensitivity,
		Logger:      log.With("component", "audio"),
	}
	if cue := cfg.Audio.Cue; cue != "" {
		opt.Cue = func() error { return notify.Beep(cue) }
	}

	rec := audio.NewRecorder(opt)
	if err := rec.Init(); err != nil {
		return nil, nil, err
	}
	return rec, rec.Close, nil
}

func newTranscriber(cfg *config.Config, client openai.Client) (loop.Transcriber, func(), error) {
	lang := cfg.STT.Language

	if cfg.STT.Backend == "cloud" {
		if lang == "auto" {
			lang = ""
		}
		return stt.NewCloud(client, stt.CloudOptions{
			Model:    cfg.STT.CloudModel,
			Language: lang,
			Logger:   log.With("component", "stt"),
		}), func() {}, nil
	}

	w, err := whispercpp.NewTranscriber(cfg.STT.Model, whispercpp.Options{
		Language: lang,
		Threads:  cfg.STT.Threads,
		Logger:   log.With("component", "stt"),
	})
	if err != nil {
		return nil, nil, err
	}
	return w, func() { w.Close() }, nil
}

func newSpeaker(cfg *config.Config) loop.Speaker {
	speaker := tts.NewESpeak(cfg.TTS.Voice, cfg.TTS.Rate)
	if !cfg.TTS.Duck {
		return speaker
	}

	ducker := audio.NewDucker(audio.DuckerOptions{
		Self:   []string{"espeak-ng", "eSpeak", strings.ToLower(cfg.Name)},
		Factor: cfg.TTS.DuckFactor,
		Fade:   cfg.TTS.Fade,
	})
	return tts.NewDucked(speaker, ducker, log.With("component", "tts"))
}

func newSurfaces(cfg *config.Config, board *present.StatusBoard) ([]present.Surface, func()) {
	surfaces := []present.Surface{board}
	closers := []func(){}

	if cfg.Present.Console {
		surfaces = append(surfaces, present.NewConsole(os.Stdout, cfg.Name))
	}
	if cfg.Present.Notify {
		surfaces = append(surfaces, present.NewDesktop(cfg.Name, log.With("component", "notify")))
	}
	if url := cfg.Present.BusURL; url != "" {
		bus, err := present.NewBus(url, strings.ToLower(cfg.Name), "ui", log.With("component", "bus"))
		if err != nil {
			log.Warn("Bus unavailable, continuing without it", "url", url, "err", err)
		} else {
			surfaces = append(surfaces, bus)
			closers = append(closers, func() { bus.Close() })
		}
	}

	return surfaces, func() {
		for _, c := range closers {
			c()
		}
	}
}

func controlHandler(board *present.StatusBoard) ipc.Handler {
	return func(r ipc.Request) ipc.Reply {
		switch r.Cmd {
		case "status":
			s := board.Snapshot()
			return ipc.Reply{
				OK:       true,
				Status:   s.Status.String(),
				Detail:   s.Detail,
				Since:    s.Since,
				LastUser: s.LastUser,
				LastBot:  s.LastBot,
			}
		case "ping":
			return ipc.Reply{OK: true}
		default:
			return ipc.Reply{Error: "unknown command: " + r.Cmd}
		}
	}
}
