package tool

import (
	"context"
	"fmt"
	log "log/slog"
	"time"
)

type Call struct {
	ID   string
	Name string
	Args Args
	// ArgsError is set when the agent's arguments could not be decoded.
	// Such a call fails without running its handler.
	ArgsError string
}

type Result struct {
	CallID  string
	Name    string
	Output  string
	Failure string
}

func (r Result) Failed() bool { return r.Failure != "" }

// Text is what the agent should read back: the output, or the failure verbatim.
func (r Result) Text() string {
	if r.Failed() {
		return r.Failure
	}
	return r.Output
}

type Executor struct {
	reg *Registry
	log *log.Logger
}

func NewExecutor(reg *Registry, logger *log.Logger) *Executor {
	if logger == nil {
		logger = log.Default()
	}
	return &Executor{reg: reg, log: logger}
}

// Execute never returns an error: every failure becomes a Result.
func (e *Executor) Execute(ctx context.Context, call Call) Result {
	res := Result{CallID: call.ID, Name: call.Name}

	spec, err := e.reg.Resolve(call.Name)
	if err != nil {
		res.Failure = "unknown tool: " + call.Name
		e.log.Warn("Unknown tool requested", "tool", call.Name)
		return res
	}

	if call.ArgsError != "" {
		res.Failure = "invalid arguments for " + call.Name + ": " + call.ArgsError
		e.log.Warn("Tool call rejected", "tool", call.Name, "err", call.ArgsError)
		return res
	}

	for _, p := range spec.Params {
		if !p.Required {
			continue
		}
		if v, ok := call.Args[p.Name]; !ok || v == nil {
			res.Failure = "missing required parameter: " + p.Name
			e.log.Warn("Tool call rejected", "tool", call.Name, "param", p.Name)
			return res
		}
	}

	args := call.Args
	if args == nil {
		args = Args{}
	}

	start := time.Now()
	out, err := invoke(ctx, spec, args)
	if err != nil {
		res.Failure = err.Error()
		if res.Failure == "" {
			res.Failure = spec.Name + " failed"
		}
	} else {
		res.Output = out
	}

	e.log.Info("Tool executed",
		"tool", spec.Name,
		"duration", time.Since(start),
		"failed", res.Failed(),
	)
	return res
}

func invoke(ctx context.Context, spec Spec, args Args) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
			err = fmt.Errorf("%s failed: %v", spec.Name, r)
		}
	}()
	return spec.Handler(ctx, args)
}
