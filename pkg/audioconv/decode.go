package audioconv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

func decodeWAV(r io.ReadSeeker) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}

	channels, rate := 1, 44100
	if buf.Format != nil {
		if buf.Format.NumChannels > 0 {
			channels = buf.Format.NumChannels
		}
		if buf.Format.SampleRate > 0 {
			rate = buf.Format.SampleRate
		}
	}

	return toMono16k(intsToFloat(buf.Data, depth), channels, rate), nil
}

func decodeMP3(r io.Reader) ([]float32, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, err
	}

	samples := make([]int16, raw.Len()/2)
	if err := binary.Read(&raw, binary.LittleEndian, &samples); err != nil {
		return nil, err
	}

	rate := dec.SampleRate()
	if rate <= 0 {
		rate = 44100
	}
	// go-mp3 always produces interleaved stereo
	return toMono16k(int16sToFloat(samples), 2, rate), nil
}

func decodeOgg(r io.ReadSeeker) ([]float32, error) {
	pcm, err := decodeOggVorbis(r)
	if err == nil {
		return pcm, nil
	}
	if _, serr := r.Seek(0, io.SeekStart); serr != nil {
		return nil, serr
	}
	pcm, oerr := decodeOggOpus(r)
	if oerr != nil {
		return nil, fmt.Errorf("neither vorbis (%v) nor opus (%w)", err, oerr)
	}
	return pcm, nil
}

func decodeOggVorbis(r io.Reader) ([]float32, error) {
	pcm, f, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if f == nil || f.Channels <= 0 || f.SampleRate <= 0 {
		return nil, errors.New("invalid vorbis stream")
	}
	return toMono16k(pcm, f.Channels, f.SampleRate), nil
}

func decodeOggOpus(r io.ReadSeeker) ([]float32, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	defer dec.Destroy()

	channels := dec.ChannelCount()
	if channels <= 0 {
		channels = 1
	}

	// opus always decodes at 48 kHz
	var (
		pcm []float32
		buf = make([]int16, 24_000*channels)
	)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, int16sToFloat(buf[:n*channels])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	return toMono16k(pcm, channels, 48000), nil
}
