// Package audioconv decodes audio files into the 16 kHz mono float32 PCM
// the transcribers consume.
package audioconv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const SampleRate = 16000

var ErrUnsupported = errors.New("unsupported audio format")

type Options struct {
	// MaxSamples truncates the output; 0 keeps everything.
	MaxSamples int
}

type format int

const (
	formatUnknown format = iota
	formatWAV
	formatMP3
	formatOgg
)

func (f format) String() string {
	switch f {
	case formatWAV:
		return "wav"
	case formatMP3:
		return "mp3"
	case formatOgg:
		return "ogg"
	default:
		return "unknown"
	}
}

// DecodeFile reads wav, mp3 or ogg (vorbis, then opus) from path.
func DecodeFile(ctx context.Context, path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pcm, err := Decode(ctx, f, byExtension(path), opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return pcm, nil
}

// Decode reads r in the named format ("wav", "mp3", "ogg"). An empty or
// unknown name falls back to sniffing the magic bytes.
func Decode(ctx context.Context, r io.ReadSeeker, name string, opt Options) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ft := parseFormat(name)
	if ft == formatUnknown {
		var err error
		if ft, err = sniff(r); err != nil {
			return nil, err
		}
	}

	var (
		pcm []float32
		err error
	)
	switch ft {
	case formatWAV:
		pcm, err = decodeWAV(r)
	case formatMP3:
		pcm, err = decodeMP3(r)
	case formatOgg:
		pcm, err = decodeOgg(r)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ft, err)
	}

	if opt.MaxSamples > 0 && len(pcm) > opt.MaxSamples {
		pcm = pcm[:opt.MaxSamples]
	}
	return pcm, nil
}

func byExtension(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

func parseFormat(name string) format {
	switch strings.ToLower(name) {
	case "wav", "wave":
		return formatWAV
	case "mp3":
		return formatMP3
	case "ogg", "oga", "opus":
		return formatOgg
	default:
		return formatUnknown
	}
}

func sniff(r io.ReadSeeker) (format, error) {
	magic, _ := bufio.NewReader(r).Peek(4)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return formatUnknown, err
	}

	switch {
	case string(magic) == "RIFF":
		return formatWAV, nil
	case string(magic) == "OggS":
		return formatOgg, nil
	case len(magic) >= 3 && string(magic[:3]) == "ID3",
		len(magic) >= 2 && magic[0] == 0xFF && magic[1]&0xE0 == 0xE0:
		return formatMP3, nil
	default:
		return formatUnknown, ErrUnsupported
	}
}
