package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const maxVolume = 150

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

type sinkInput struct {
	ID      int
	Volume  int
	AppName string
}

type fade struct {
	id       int
	from, to int
}

// Pactl runs a pactl subcommand and returns its stdout.
type Pactl func(ctx context.Context, args ...string) ([]byte, error)

func execPactl(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "pactl", args...).Output()
}

type DuckerOptions struct {
	// Self lists application.name values that are never faded.
	Self []string
	// Factor scales foreign streams while ducked.
	Factor float64
	// Floor is the lowest volume a ducked stream is faded to.
	Floor int
	Fade  time.Duration
}

// Ducker lowers other PulseAudio streams while the assistant talks.
type Ducker struct {
	mu       sync.Mutex
	opt      DuckerOptions
	pactl    Pactl
	active   bool
	original map[int]int
}

func NewDucker(opt DuckerOptions) *Ducker {
	if opt.Factor <= 0 || opt.Factor > 1 {
		opt.Factor = 0.3
	}
	opt.Floor = max(0, min(maxVolume, opt.Floor))
	return &Ducker{
		opt:      opt,
		pactl:    execPactl,
		original: make(map[int]int),
	}
}

func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	streams, err := d.list(ctx)
	if err != nil {
		return err
	}

	d.original = make(map[int]int)
	var fades []fade
	for _, s := range streams {
		if d.isSelf(s) {
			continue
		}
		to := int(math.Round(float64(s.Volume) * d.opt.Factor))
		to = max(d.opt.Floor, min(maxVolume, to))

		d.original[s.ID] = s.Volume
		fades = append(fades, fade{id: s.ID, from: s.Volume, to: to})
	}

	if err := d.apply(ctx, fades); err != nil {
		return err
	}
	d.active = true
	return nil
}

// Restore fades ducked streams back. Streams that appeared after Duck are left alone.
func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	streams, err := d.list(ctx)
	if err != nil {
		return err
	}

	var fades []fade
	for _, s := range streams {
		orig, ok := d.original[s.ID]
		if !ok || d.isSelf(s) {
			continue
		}
		fades = append(fades, fade{id: s.ID, from: s.Volume, to: orig})
	}

	if err := d.apply(ctx, fades); err != nil {
		return err
	}
	d.original = make(map[int]int)
	d.active = false
	return nil
}

func (d *Ducker) isSelf(s sinkInput) bool {
	for _, name := range d.opt.Self {
		if s.AppName == name {
			return true
		}
	}
	return false
}

func (d *Ducker) list(ctx context.Context) ([]sinkInput, error) {
	out, err := d.pactl(ctx, "list", "sink-inputs")
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

// apply steps every stream towards its target over the fade duration.
func (d *Ducker) apply(ctx context.Context, fades []fade) error {
	if len(fades) == 0 {
		return nil
	}

	const minStep = 10 * time.Millisecond
	steps := max(1, int(d.opt.Fade/minStep))
	interval := d.opt.Fade / time.Duration(steps)

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		frac := float64(i) / float64(steps)
		for _, f := range fades {
			v := int(math.Round(float64(f.from) + float64(f.to-f.from)*frac))
			if err := d.setVolume(ctx, f.id, v); err != nil {
				return err
			}
		}

		if i < steps && interval > 0 {
			time.Sleep(interval)
		}
	}
	return nil
}

func (d *Ducker) setVolume(ctx context.Context, id, percent int) error {
	percent = max(0, min(maxVolume, percent))
	if _, err := d.pactl(ctx, "set-sink-input-volume", strconv.Itoa(id), fmt.Sprintf("%d%%", percent)); err != nil {
		return fmt.Errorf("set volume id=%d: %w", id, err)
	}
	return nil
}

func parseSinkInputs(text string) []sinkInput {
	blocks := strings.Split(text, "Sink Input #")
	if len(blocks) <= 1 {
		return nil
	}

	var res []sinkInput
	for _, block := range blocks[1:] {
		head, body, ok := strings.Cut(block, "\n")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(head))
		if err != nil {
			continue
		}

		s := sinkInput{ID: id}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)

			switch {
			case strings.HasPrefix(line, "Volume:") && s.Volume == 0:
				if m := percentRe.FindStringSubmatch(line); m != nil {
					s.Volume, _ = strconv.Atoi(m[1])
				}
			case strings.HasPrefix(line, "application.name =") && s.AppName == "":
				// application.name = "Firefox"
				_, rest, _ := strings.Cut(line, `"`)
				s.AppName, _, _ = strings.Cut(rest, `"`)
			}
		}

		if s.Volume == 0 && s.AppName == "" {
			continue
		}
		res = append(res, s)
	}
	return res
}
