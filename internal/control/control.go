// Package control implements the tools the assistant can invoke on the
// local machine and on a few public web services.
package control

import (
	"context"
	"fmt"
	log "log/slog"
	"net/http"
	"os"
	"os/exec"
	"time"

	"vecna/internal/tool"
)

// Runner starts external programs. Tests swap it for a recorder.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// Start launches a process without waiting for it.
	Start(name string, args ...string) error
	LookPath(file string) (string, error)
}

type ExecRunner struct{}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func (ExecRunner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

func (ExecRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

type Endpoints struct {
	Wikipedia string // REST summary base, title is appended
	Weather   string
	YouTube   string // search results page
	Watch     string // video page, id is appended
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Wikipedia: "https://en.wikipedia.org/api/rest_v1/page/summary/",
		Weather:   "https://wttr.in/",
		YouTube:   "https://www.youtube.com/results",
		Watch:     "https://www.youtube.com/watch?v=",
	}
}

type Deps struct {
	Runner Runner
	HTTP   *http.Client
	Now    func() time.Time
	// Apps maps spoken names to commands, e.g. "browser": "firefox".
	Apps          map[string]string
	ScreenshotDir string
	Endpoints     Endpoints
	Logger        *log.Logger
}

type handlers struct {
	Deps
}

func newHandlers(d Deps) *handlers {
	if d.Runner == nil {
		d.Runner = ExecRunner{}
	}
	if d.HTTP == nil {
		d.HTTP = &http.Client{Timeout: 15 * time.Second}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.ScreenshotDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			d.ScreenshotDir = home
		} else {
			d.ScreenshotDir = os.TempDir()
		}
	}
	def := DefaultEndpoints()
	if d.Endpoints.Wikipedia == "" {
		d.Endpoints.Wikipedia = def.Wikipedia
	}
	if d.Endpoints.Weather == "" {
		d.Endpoints.Weather = def.Weather
	}
	if d.Endpoints.YouTube == "" {
		d.Endpoints.YouTube = def.YouTube
	}
	if d.Endpoints.Watch == "" {
		d.Endpoints.Watch = def.Watch
	}
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	return &handlers{Deps: d}
}

// Catalog lists every tool in the order it is advertised to the agent.
func Catalog(d Deps) []tool.Spec {
	h := newHandlers(d)

	return []tool.Spec{
		{
			Name:        "open_app",
			Description: "Opens an application by name (e.g. 'firefox', 'spotify').",
			Params:      []tool.Param{{Name: "app_name", Type: "string", Description: "Application to open", Required: true}},
			Handler:     h.openApp,
		},
		{
			Name:        "close_app",
			Description: "Closes a running application.",
			Params:      []tool.Param{{Name: "app_name", Type: "string", Description: "Application to close", Required: true}},
			Handler:     h.closeApp,
		},
		{
			Name:        "control_volume",
			Description: "Changes the system volume.",
			Params: []tool.Param{{
				Name: "action", Type: "string", Required: true,
				Enum: []string{"up", "down", "mute"},
			}},
			Handler: h.controlVolume,
		},
		{
			Name:        "set_brightness",
			Description: "Sets the screen brightness in percent.",
			Params:      []tool.Param{{Name: "level", Type: "integer", Description: "0 to 100", Required: true}},
			Handler:     h.setBrightness,
		},
		{
			Name:        "take_screenshot",
			Description: "Captures the screen to a timestamped file.",
			Handler:     h.takeScreenshot,
		},
		{
			Name:        "get_time",
			Description: "Returns the current time in 12-hour format.",
			Handler:     h.getTime,
		},
		{
			Name:        "get_date",
			Description: "Returns the current date.",
			Handler:     h.getDate,
		},
		{
			Name:        "play_youtube",
			Description: "Plays the first YouTube result for a query.",
			Params:      []tool.Param{{Name: "query", Type: "string", Description: "What to play", Required: true}},
			Handler:     h.playYouTube,
		},
		{
			Name:        "search_wikipedia",
			Description: "Returns a short Wikipedia summary.",
			Params:      []tool.Param{{Name: "query", Type: "string", Description: "Topic to look up", Required: true}},
			Handler:     h.searchWikipedia,
		},
		{
			Name:        "check_weather",
			Description: "Checks the current weather for a city.",
			Params:      []tool.Param{{Name: "city", Type: "string", Description: "City name", Required: true}},
			Handler:     h.checkWeather,
		},
	}
}

func Register(reg *tool.Registry, d Deps) error {
	for _, s := range Catalog(d) {
		if err := reg.Register(s); err != nil {
			return fmt.Errorf("register %s: %w", s.Name, err)
		}
	}
	return nil
}
