package audio

import (
	"math"
	"time"
)

// detector is an energy based voice activity detector over fixed frames.
type detector struct {
	threshold    float64
	pauseFrames  int
	maxFrames    int
	speaking     bool
	silentFrames int
	speechFrames int
	out          []float32
}

func newDetector(threshold float64, pause, maxDuration time.Duration) *detector {
	d := &detector{
		threshold:   threshold,
		pauseFrames: max(1, framesFor(pause)),
		out:         make([]float32, 0, SampleRate*3),
	}
	if maxDuration > 0 {
		d.maxFrames = max(1, framesFor(maxDuration))
	}
	return d
}

// feed consumes one frame and reports whether the utterance is complete.
// Frames before speech onset are discarded.
func (d *detector) feed(frame []float32) bool {
	loud := frameRMS(frame) > d.threshold

	if !d.speaking {
		if !loud {
			return false
		}
		d.speaking = true
	}

	d.out = append(d.out, frame...)
	d.speechFrames++

	if loud {
		d.silentFrames = 0
	} else {
		d.silentFrames++
		if d.silentFrames >= d.pauseFrames {
			return true
		}
	}

	return d.maxFrames > 0 && d.speechFrames >= d.maxFrames
}

func (d *detector) utterance() []float32 {
	return d.out
}

// calibrate derives the speech threshold from ambient frame energies.
func calibrate(ambient []float64, floor, sensitivity float64) float64 {
	if len(ambient) == 0 {
		return floor
	}
	var sum float64
	for _, v := range ambient {
		sum += v
	}
	return math.Max(floor, sum/float64(len(ambient))*sensitivity)
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
