package config

import (
	"os"
	"path/filepath"
	"slices"
	"time"

	"vecna/internal/loop"
	"vecna/internal/session"
)

func Default() *Config {
	phrases := loop.DefaultPhrases()

	return &Config{
		Name: "Vecna",
		Agent: AgentConfig{
			Model:   "gpt-5-nano",
			MaxHops: session.DefaultMaxHops,
		},
		ExitKeywords: slices.Clone(loop.DefaultExitKeywords),
		Phrases: PhrasesConfig{
			Greeting:        phrases.Greeting,
			Farewell:        phrases.Farewell,
			ConnectionError: phrases.ConnectionError,
		},
		Audio: AudioConfig{
			MaxUtterance: loop.DefaultMaxUtterance,
			Calibration:  500 * time.Millisecond,
			Pause:        600 * time.Millisecond,
			Sensitivity:  3,
			Retry:        loop.DefaultRetryDelay,
		},
		STT: STTConfig{
			Backend:    "whisper",
			Model:      "third_party/whisper.cpp/models/ggml-medium.bin",
			CloudModel: "whisper-1",
			Language:   "auto",
		},
		TTS: TTSConfig{
			Voice:      "en",
			Duck:       true,
			DuckFactor: 0.3,
			Fade:       200 * time.Millisecond,
		},
		Apps:          map[string]string{},
		ScreenshotDir: defaultScreenshotDir(),
		Present: PresentConfig{
			Console: true,
			Notify:  true,
			Socket:  filepath.Join(os.TempDir(), "vecna.sock"),
			Queue:   64,
		},
	}
}

func defaultScreenshotDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(home, "Pictures")
}
