package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Name          string            `yaml:"name"`
	Agent         AgentConfig       `yaml:"agent"`
	ExitKeywords  []string          `yaml:"exit_keywords"`
	Phrases       PhrasesConfig     `yaml:"phrases"`
	Audio         AudioConfig       `yaml:"audio"`
	STT           STTConfig         `yaml:"stt"`
	TTS           TTSConfig         `yaml:"tts"`
	Apps          map[string]string `yaml:"apps"`
	ScreenshotDir string            `yaml:"screenshot_dir"`
	Present       PresentConfig     `yaml:"present"`
	Proxy         string            `yaml:"proxy"` // host:port of a SOCKS5 proxy, empty for direct
}

type AgentConfig struct {
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
	MaxHops      int    `yaml:"max_hops"`
}

type PhrasesConfig struct {
	Greeting        string `yaml:"greeting"`
	Farewell        string `yaml:"farewell"`
	ConnectionError string `yaml:"connection_error"`
}

type AudioConfig struct {
	MaxUtterance time.Duration `yaml:"max_utterance"`
	Calibration  time.Duration `yaml:"calibration"`
	Pause        time.Duration `yaml:"pause"`
	Sensitivity  float64       `yaml:"sensitivity"`
	Retry        time.Duration `yaml:"retry"` // wait after a failed capture
	Cue          string        `yaml:"cue"` // mp3 played when listening starts
}

type STTConfig struct {
	Backend    string `yaml:"backend"` // "whisper" or "cloud"
	Model      string `yaml:"model"`   // ggml model path
	CloudModel string `yaml:"cloud_model"`
	Language   string `yaml:"language"` // "auto" or ISO-639-1
	Threads    int    `yaml:"threads"`
}

type TTSConfig struct {
	Voice      string        `yaml:"voice"`
	Rate       int           `yaml:"rate"`
	Duck       bool          `yaml:"duck"`
	DuckFactor float64       `yaml:"duck_factor"`
	Fade       time.Duration `yaml:"fade"`
}

type PresentConfig struct {
	Console bool   `yaml:"console"`
	Notify  bool   `yaml:"notify"`
	BusURL  string `yaml:"bus_url"`
	Socket  string `yaml:"socket"`
	Queue   int    `yaml:"queue"`
}

// Load reads a YAML file over Default. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(ExpandPath(path))
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.STT.Model = ExpandPath(cfg.STT.Model)
	cfg.Audio.Cue = ExpandPath(cfg.Audio.Cue)
	cfg.ScreenshotDir = ExpandPath(cfg.ScreenshotDir)
	cfg.Present.Socket = ExpandPath(cfg.Present.Socket)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Validate(cfg *Config) error {
	var errs []string

	if strings.TrimSpace(cfg.Name) == "" {
		errs = append(errs, "name must not be empty")
	}
	if cfg.Agent.MaxHops < 1 || cfg.Agent.MaxHops > 50 {
		errs = append(errs, "agent.max_hops must be between 1 and 50")
	}
	switch cfg.STT.Backend {
	case "whisper", "cloud":
	default:
		errs = append(errs, "stt.backend must be one of: whisper, cloud")
	}
	if cfg.STT.Backend == "whisper" && cfg.STT.Model == "" {
		errs = append(errs, "stt.model is required for the whisper backend")
	}
	if cfg.Audio.MaxUtterance <= 0 {
		errs = append(errs, "audio.max_utterance must be positive")
	}
	if cfg.Audio.Retry <= 0 {
		errs = append(errs, "audio.retry must be positive")
	}
	if cfg.TTS.DuckFactor < 0 || cfg.TTS.DuckFactor > 1 {
		errs = append(errs, "tts.duck_factor must be between 0 and 1")
	}
	if cfg.Present.Queue < 1 {
		errs = append(errs, "present.queue must be >= 1")
	}
	if len(cfg.ExitKeywords) == 0 {
		errs = append(errs, "exit_keywords must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves a leading ~/ to the user's home directory.
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
