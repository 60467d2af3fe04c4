package session

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	"github.com/google/uuid"

	"vecna/internal/tool"
)

const (
	DefaultMaxHops = 5

	HopLimitReply = "Sorry, I couldn't complete that request."
	EmptyReply    = "Done."
)

var (
	// ErrAgentUnavailable means the agent could not be reached.
	ErrAgentUnavailable = errors.New("agent unavailable")
	// ErrBadReply means the agent answered with nothing usable.
	ErrBadReply = errors.New("unusable agent reply")
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one history entry. Tool turns carry the call and its result.
type Turn struct {
	Seq    int
	Role   Role
	Text   string
	Call   *tool.Call
	Result *tool.Result
}

// Reply is a single agent exchange: a final text, or tool calls to run first.
type Reply struct {
	Text  string
	Calls []tool.Call
}

type Agent interface {
	Converse(ctx context.Context, history []Turn, tools []tool.Spec) (Reply, error)
}

// Observer hears about tool execution while Submit is running.
type Observer interface {
	ToolStarted(call tool.Call)
	ToolFinished(res tool.Result)
}

type Result struct {
	Reply       string
	Invocations []tool.Result
}

type Options struct {
	MaxHops int
	Logger  *log.Logger
}

// Session owns the conversation history. It is not safe for concurrent use;
// the turn loop is its only caller.
type Session struct {
	id       string
	agent    Agent
	reg      *tool.Registry
	exec     *tool.Executor
	maxHops  int
	history  []Turn
	observer Observer
	log      *log.Logger
}

func New(agent Agent, reg *tool.Registry, opt Options) *Session {
	if opt.MaxHops <= 0 {
		opt.MaxHops = DefaultMaxHops
	}
	if opt.Logger == nil {
		opt.Logger = log.Default()
	}

	return &Session{
		id:      uuid.NewString(),
		agent:   agent,
		reg:     reg,
		exec:    tool.NewExecutor(reg, opt.Logger),
		maxHops: opt.MaxHops,
		log:     opt.Logger,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Observe(o Observer) { s.observer = o }

func (s *Session) History() []Turn {
	return append([]Turn(nil), s.history...)
}

func (s *Session) Reset() {
	s.log.Info("Session reset", "session", s.id, "turns", len(s.history))
	s.history = nil
	s.id = uuid.NewString()
}

func (s *Session) Submit(ctx context.Context, text string) (Result, error) {
	s.appendTurn(Turn{Role: RoleUser, Text: text})

	var (
		out   Result
		tools = s.reg.List()
	)

	for hop := 0; ; hop++ {
		reply, err := s.agent.Converse(ctx, s.History(), tools)
		if err != nil {
			s.log.Error("Agent exchange failed", "session", s.id, "hop", hop, "err", err)
			if errors.Is(err, ErrBadReply) || ctx.Err() != nil {
				return Result{}, err
			}
			return Result{}, fmt.Errorf("%w: %w", ErrAgentUnavailable, err)
		}

		if len(reply.Calls) == 0 {
			out.Reply = finalText(reply.Text, out.Invocations)
			s.appendTurn(Turn{Role: RoleAssistant, Text: out.Reply})
			return out, nil
		}

		if hop >= s.maxHops {
			s.log.Warn("Tool hop limit reached", "session", s.id, "hops", hop, "pending", len(reply.Calls))
			out.Reply = HopLimitReply
			s.appendTurn(Turn{Role: RoleAssistant, Text: out.Reply})
			return out, nil
		}

		for _, call := range reply.Calls {
			if call.ID == "" {
				call.ID = "call_" + uuid.NewString()
			}

			if s.observer != nil {
				s.observer.ToolStarted(call)
			}

			res := s.exec.Execute(ctx, call)
			out.Invocations = append(out.Invocations, res)

			c := call
			s.appendTurn(Turn{Role: RoleTool, Text: res.Text(), Call: &c, Result: &res})

			if s.observer != nil {
				s.observer.ToolFinished(res)
			}
		}
	}
}

func (s *Session) appendTurn(t Turn) {
	t.Seq = len(s.history)
	s.history = append(s.history, t)
}

func finalText(text string, results []tool.Result) string {
	if strings.TrimSpace(text) != "" {
		return text
	}
	for i := len(results) - 1; i >= 0; i-- {
		if t := results[i].Text(); t != "" {
			return t
		}
	}
	return EmptyReply
}
