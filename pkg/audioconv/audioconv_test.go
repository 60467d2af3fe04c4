package audioconv

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, rate, channels int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDecodeFileWAV(t *testing.T) {
	data := make([]int, 1600)
	for i := range data {
		data[i] = 16384
	}
	path := writeWAV(t, 16000, 1, data)

	pcm, err := DecodeFile(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pcm) != 1600 {
		t.Fatalf("expected 1600 samples, got %d", len(pcm))
	}
	if math.Abs(float64(pcm[0])-0.5) > 1e-3 {
		t.Fatalf("unexpected amplitude %f", pcm[0])
	}
}

func TestDecodeFileResamplesStereo(t *testing.T) {
	// 0.1s of 32 kHz stereo, left loud and right silent
	data := make([]int, 3200*2)
	for i := 0; i < len(data); i += 2 {
		data[i] = 16384
	}
	path := writeWAV(t, 32000, 2, data)

	pcm, err := DecodeFile(context.Background(), path, Options{MaxSamples: 1000})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pcm) != 1000 {
		t.Fatalf("expected truncation to 1000 samples, got %d", len(pcm))
	}
	if math.Abs(float64(pcm[10])-0.25) > 1e-3 {
		t.Fatalf("expected downmixed 0.25, got %f", pcm[10])
	}
}

func TestDecodeSniffsUnknown(t *testing.T) {
	_, err := Decode(context.Background(), bytes.NewReader([]byte("not audio at all")), "", Options{})
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestDecodeHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Decode(ctx, bytes.NewReader(nil), "wav", Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestResample(t *testing.T) {
	in := []float32{0, 1, 2, 3}
	out := Resample(in, 8000, 16000)
	if len(out) != 8 {
		t.Fatalf("expected 8 samples, got %d", len(out))
	}
	if out[1] != 0.5 || out[2] != 1 {
		t.Fatalf("unexpected interpolation %v", out)
	}
	if got := Resample(in, 16000, 16000); &got[0] != &in[0] {
		t.Fatalf("same-rate resample should return input")
	}
}

func TestDownmix(t *testing.T) {
	out := Downmix([]float32{1, 0, 0.5, 0.5}, 2)
	if len(out) != 2 || out[0] != 0.5 || out[1] != 0.5 {
		t.Fatalf("unexpected downmix %v", out)
	}
}
