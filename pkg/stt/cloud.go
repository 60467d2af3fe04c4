package stt

import (
	"context"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	openai "github.com/openai/openai-go/v3"
)

const SampleRate = 16000

// Cloud transcribes through the OpenAI audio transcription endpoint.
type Cloud struct {
	client   openai.Client
	model    string
	language string
	log      *log.Logger
}

type CloudOptions struct {
	Model    string // default whisper-1
	Language string // ISO-639-1, empty for auto
	Logger   *log.Logger
}

func NewCloud(client openai.Client, opt CloudOptions) *Cloud {
	if opt.Model == "" {
		opt.Model = string(openai.AudioModelWhisper1)
	}
	if opt.Logger == nil {
		opt.Logger = log.Default()
	}
	return &Cloud{
		client:   client,
		model:    opt.Model,
		language: opt.Language,
		log:      opt.Logger,
	}
}

func (c *Cloud) Transcribe(ctx context.Context, pcm []float32) (string, error) {
	if len(pcm) == 0 {
		return "", ErrNoSpeech
	}

	f, err := os.CreateTemp("", "vecna-*.wav")
	if err != nil {
		return "", err
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if err := EncodeWAV(f, pcm); err != nil {
		return "", fmt.Errorf("encode wav: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(f, "utterance.wav", "audio/wav"),
		Model: openai.AudioModel(c.model),
	}
	if c.language != "" {
		params.Language = openai.String(c.language)
	}

	resp, err := c.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %w", ErrServiceUnreachable, err)
	}

	text := strings.TrimSpace(resp.Text)
	c.log.Debug("Cloud transcription", "model", c.model, "text", text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

// EncodeWAV writes mono 16 kHz 16-bit PCM.
func EncodeWAV(w io.WriteSeeker, pcm []float32) error {
	data := make([]int, len(pcm))
	for i, s := range pcm {
		s = max(-1, min(1, s))
		data[i] = int(s * 32767)
	}

	enc := wav.NewEncoder(w, SampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
