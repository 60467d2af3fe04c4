package tool_test

import (
	"context"
	"errors"
	"testing"

	"vecna/internal/tool"
)

func newCatalog(t *testing.T) *tool.Registry {
	t.Helper()

	reg := tool.NewRegistry()
	reg.MustRegister(
		tool.Spec{
			Name:    "get_time",
			Handler: func(context.Context, tool.Args) (string, error) { return "03:04 PM", nil },
		},
		tool.Spec{
			Name:   "open_app",
			Params: []tool.Param{{Name: "app_name", Type: "string", Required: true}},
			Handler: func(_ context.Context, args tool.Args) (string, error) {
				return "Opening " + args.String("app_name") + "...", nil
			},
		},
		tool.Spec{
			Name:   "set_brightness",
			Params: []tool.Param{{Name: "level", Type: "integer", Required: true}},
			Handler: func(_ context.Context, args tool.Args) (string, error) {
				if _, err := args.Int("level"); err != nil {
					return "", err
				}
				return "Brightness set.", nil
			},
		},
	)
	return reg
}

func TestExecuteRegisteredToolsSucceed(t *testing.T) {
	reg := newCatalog(t)
	exec := tool.NewExecutor(reg, nil)

	valid := map[string]tool.Args{
		"get_time":       nil,
		"open_app":       {"app_name": "notepad"},
		"set_brightness": {"level": float64(40)},
	}

	for _, spec := range reg.List() {
		if _, err := reg.Resolve(spec.Name); err != nil {
			t.Fatalf("resolve %s: %v", spec.Name, err)
		}
		res := exec.Execute(context.Background(), tool.Call{ID: "c", Name: spec.Name, Args: valid[spec.Name]})
		if res.Failed() {
			t.Fatalf("%s failed: %s", spec.Name, res.Failure)
		}
		if res.Name != spec.Name || res.CallID != "c" {
			t.Fatalf("result not attributed: %+v", res)
		}
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	exec := tool.NewExecutor(tool.NewRegistry(), nil)

	for _, name := range []string{"missing", "", "rm -rf"} {
		res := exec.Execute(context.Background(), tool.Call{Name: name})
		if !res.Failed() {
			t.Fatalf("%q: expected failure", name)
		}
		if want := "unknown tool: " + name; res.Failure != want {
			t.Fatalf("got %q, want %q", res.Failure, want)
		}
	}
}

func TestExecuteMissingParameter(t *testing.T) {
	exec := tool.NewExecutor(newCatalog(t), nil)

	tests := []struct {
		name string
		args tool.Args
	}{
		{"absent", tool.Args{}},
		{"nil map", nil},
		{"null value", tool.Args{"app_name": nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := exec.Execute(context.Background(), tool.Call{Name: "open_app", Args: tt.args})
			if res.Failure != "missing required parameter: app_name" {
				t.Fatalf("unexpected failure: %q", res.Failure)
			}
		})
	}
}

func TestExecuteFirstMissingParameterIsCited(t *testing.T) {
	reg := tool.NewRegistry()
	reg.MustRegister(tool.Spec{
		Name: "multi",
		Params: []tool.Param{
			{Name: "first", Type: "string", Required: true},
			{Name: "optional", Type: "string"},
			{Name: "second", Type: "string", Required: true},
		},
		Handler: noop,
	})

	res := tool.NewExecutor(reg, nil).Execute(context.Background(), tool.Call{Name: "multi", Args: tool.Args{"second": "x"}})
	if res.Failure != "missing required parameter: first" {
		t.Fatalf("unexpected failure: %q", res.Failure)
	}
}

func TestExecuteHandlerErrorVerbatim(t *testing.T) {
	reg := tool.NewRegistry()
	reg.MustRegister(tool.Spec{
		Name: "open_app",
		Handler: func(context.Context, tool.Args) (string, error) {
			return "partial", errors.New("app not found")
		},
	})

	res := tool.NewExecutor(reg, nil).Execute(context.Background(), tool.Call{Name: "open_app"})
	if res.Failure != "app not found" {
		t.Fatalf("expected verbatim failure, got %q", res.Failure)
	}
	if res.Output != "" {
		t.Fatalf("output must be unset on failure, got %q", res.Output)
	}
	if res.Text() != "app not found" {
		t.Fatalf("unexpected text: %q", res.Text())
	}
}

func TestExecuteUndecodableArguments(t *testing.T) {
	calls := 0
	reg := tool.NewRegistry()
	reg.MustRegister(tool.Spec{
		Name:   "check_weather",
		Params: []tool.Param{{Name: "city", Type: "string", Required: true}},
		Handler: func(context.Context, tool.Args) (string, error) {
			calls++
			return "sunny", nil
		},
	})

	res := tool.NewExecutor(reg, nil).Execute(context.Background(), tool.Call{
		ID:        "w1",
		Name:      "check_weather",
		ArgsError: "unexpected end of JSON input",
	})
	if res.Failure != "invalid arguments for check_weather: unexpected end of JSON input" {
		t.Fatalf("unexpected failure: %q", res.Failure)
	}
	if calls != 0 {
		t.Fatalf("handler ran on undecodable arguments")
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	reg := tool.NewRegistry()
	reg.MustRegister(tool.Spec{
		Name: "take_screenshot",
		Handler: func(context.Context, tool.Args) (string, error) {
			panic("display gone")
		},
	})

	res := tool.NewExecutor(reg, nil).Execute(context.Background(), tool.Call{Name: "take_screenshot"})
	if res.Failure != "take_screenshot failed: display gone" {
		t.Fatalf("unexpected failure: %q", res.Failure)
	}
}

func TestExecuteEmptyErrorText(t *testing.T) {
	reg := tool.NewRegistry()
	reg.MustRegister(tool.Spec{
		Name:    "get_date",
		Handler: func(context.Context, tool.Args) (string, error) { return "", errors.New("") },
	})

	res := tool.NewExecutor(reg, nil).Execute(context.Background(), tool.Call{Name: "get_date"})
	if res.Failure != "get_date failed" {
		t.Fatalf("unexpected failure: %q", res.Failure)
	}
}

func TestExecuteCallsHandlerOnce(t *testing.T) {
	calls := 0
	reg := tool.NewRegistry()
	reg.MustRegister(tool.Spec{
		Name: "flaky",
		Handler: func(context.Context, tool.Args) (string, error) {
			calls++
			return "", errors.New("boom")
		},
	})

	tool.NewExecutor(reg, nil).Execute(context.Background(), tool.Call{Name: "flaky"})
	if calls != 1 {
		t.Fatalf("expected exactly one invocation, got %d", calls)
	}
}

func TestArgsInt(t *testing.T) {
	tests := []struct {
		in      any
		want    int
		wantErr bool
	}{
		{float64(70), 70, false},
		{70, 70, false},
		{"55", 55, false},
		{"55%", 55, false},
		{float64(1.5), 0, true},
		{"loud", 0, true},
		{true, 0, true},
	}

	for _, tt := range tests {
		got, err := tool.Args{"level": tt.in}.Int("level")
		if (err != nil) != tt.wantErr {
			t.Fatalf("%v: err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("%v: got %d, want %d", tt.in, got, tt.want)
		}
	}
}
