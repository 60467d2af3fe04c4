package session_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"vecna/internal/session"
	"vecna/internal/tool"
)

// scriptedAgent replays replies in order and records what it was sent.
type scriptedAgent struct {
	replies []session.Reply
	err     error
	seen    [][]session.Turn
	tools   [][]tool.Spec
}

func (a *scriptedAgent) Converse(_ context.Context, history []session.Turn, tools []tool.Spec) (session.Reply, error) {
	a.seen = append(a.seen, history)
	a.tools = append(a.tools, tools)
	if a.err != nil {
		return session.Reply{}, a.err
	}
	if len(a.replies) == 0 {
		return session.Reply{Text: "nothing left"}, nil
	}
	r := a.replies[0]
	a.replies = a.replies[1:]
	return r, nil
}

// loopingAgent asks for the same tool forever.
type loopingAgent struct{ exchanges int }

func (a *loopingAgent) Converse(context.Context, []session.Turn, []tool.Spec) (session.Reply, error) {
	a.exchanges++
	return session.Reply{Calls: []tool.Call{{ID: "again", Name: "get_time"}}}, nil
}

type recordingObserver struct{ events []string }

func (o *recordingObserver) ToolStarted(c tool.Call) { o.events = append(o.events, "start:"+c.Name) }
func (o *recordingObserver) ToolFinished(r tool.Result) { o.events = append(o.events, "done:"+r.Name) }

func newRegistry(t *testing.T, calls *int) *tool.Registry {
	t.Helper()

	reg := tool.NewRegistry()
	reg.MustRegister(
		tool.Spec{
			Name: "get_time",
			Handler: func(context.Context, tool.Args) (string, error) {
				*calls++
				return "03:04 PM", nil
			},
		},
		tool.Spec{
			Name:   "open_app",
			Params: []tool.Param{{Name: "app_name", Type: "string", Required: true}},
			Handler: func(context.Context, tool.Args) (string, error) {
				*calls++
				return "", errors.New("app not found")
			},
		},
	)
	return reg
}

func TestSubmitSingleToolCall(t *testing.T) {
	var calls int
	agent := &scriptedAgent{replies: []session.Reply{
		{Calls: []tool.Call{{ID: "c1", Name: "get_time"}}},
		{Text: "It is 03:04 PM."},
	}}
	s := session.New(agent, newRegistry(t, &calls), session.Options{})

	res, err := s.Submit(context.Background(), "what time is it")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(res.Invocations) != 1 {
		t.Fatalf("expected 1 invocation, got %d", len(res.Invocations))
	}
	if res.Invocations[0].Output != "03:04 PM" {
		t.Fatalf("unexpected output: %+v", res.Invocations[0])
	}
	if !strings.Contains(res.Reply, "03:04 PM") {
		t.Fatalf("reply lacks tool output: %q", res.Reply)
	}

	history := s.History()
	roles := make([]session.Role, len(history))
	for i, turn := range history {
		roles[i] = turn.Role
		if turn.Seq != i {
			t.Fatalf("turn %d has seq %d", i, turn.Seq)
		}
	}
	want := []session.Role{session.RoleUser, session.RoleTool, session.RoleAssistant}
	if !reflect.DeepEqual(roles, want) {
		t.Fatalf("history roles = %v, want %v", roles, want)
	}
	if history[1].Call == nil || history[1].Call.ID != "c1" {
		t.Fatalf("tool turn lost its call: %+v", history[1])
	}
}

func TestSubmitSendsToolsAndGrowingHistory(t *testing.T) {
	var calls int
	agent := &scriptedAgent{replies: []session.Reply{
		{Calls: []tool.Call{{ID: "c1", Name: "get_time"}}},
		{Text: "ok"},
	}}
	s := session.New(agent, newRegistry(t, &calls), session.Options{})

	if _, err := s.Submit(context.Background(), "time"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if len(agent.seen) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(agent.seen))
	}
	if len(agent.seen[0]) != 1 || len(agent.seen[1]) != 2 {
		t.Fatalf("history sizes = %d, %d", len(agent.seen[0]), len(agent.seen[1]))
	}
	if len(agent.tools[0]) != 2 || agent.tools[0][0].Name != "get_time" {
		t.Fatalf("tools not advertised in order: %+v", agent.tools[0])
	}
}

func TestSubmitPreservesCallOrder(t *testing.T) {
	var calls int
	agent := &scriptedAgent{replies: []session.Reply{
		{Calls: []tool.Call{
			{ID: "a", Name: "open_app", Args: tool.Args{"app_name": "notepad"}},
			{ID: "b", Name: "get_time"},
			{ID: "c", Name: "nope"},
		}},
		{Text: "done"},
	}}
	obs := &recordingObserver{}
	s := session.New(agent, newRegistry(t, &calls), session.Options{})
	s.Observe(obs)

	res, err := s.Submit(context.Background(), "open notepad and tell me the time")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	ids := []string{}
	for _, r := range res.Invocations {
		ids = append(ids, r.CallID)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
		t.Fatalf("invocation order = %v", ids)
	}
	if res.Invocations[2].Failure != "unknown tool: nope" {
		t.Fatalf("unexpected failure: %q", res.Invocations[2].Failure)
	}

	wantEvents := []string{"start:open_app", "done:open_app", "start:get_time", "done:get_time", "start:nope", "done:nope"}
	if !reflect.DeepEqual(obs.events, wantEvents) {
		t.Fatalf("observer events = %v", obs.events)
	}
}

func TestSubmitToolFailureReachesReply(t *testing.T) {
	var calls int
	agent := &scriptedAgent{replies: []session.Reply{
		{Calls: []tool.Call{{ID: "c1", Name: "open_app", Args: tool.Args{"app_name": "notepad"}}}},
		{},
	}}
	s := session.New(agent, newRegistry(t, &calls), session.Options{})

	res, err := s.Submit(context.Background(), "open notepad")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Invocations[0].Failure != "app not found" {
		t.Fatalf("unexpected failure: %+v", res.Invocations[0])
	}
	// Empty final text falls back to the tool's own words.
	if res.Reply != "app not found" {
		t.Fatalf("reply = %q", res.Reply)
	}
}

func TestSubmitHopLimit(t *testing.T) {
	var calls int
	agent := &loopingAgent{}
	s := session.New(agent, newRegistry(t, &calls), session.Options{MaxHops: 3})

	res, err := s.Submit(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Reply != session.HopLimitReply {
		t.Fatalf("reply = %q", res.Reply)
	}
	if calls != 3 {
		t.Fatalf("executor ran %d times, want 3", calls)
	}
	if len(res.Invocations) != 3 {
		t.Fatalf("expected 3 invocations, got %d", len(res.Invocations))
	}
	if agent.exchanges != 4 {
		t.Fatalf("expected 4 agent exchanges, got %d", agent.exchanges)
	}

	history := s.History()
	if last := history[len(history)-1]; last.Role != session.RoleAssistant || last.Text != session.HopLimitReply {
		t.Fatalf("unexpected last turn: %+v", last)
	}
}

func TestSubmitAgentUnavailable(t *testing.T) {
	var calls int
	cause := errors.New("dial tcp: connection refused")
	s := session.New(&scriptedAgent{err: cause}, newRegistry(t, &calls), session.Options{})

	_, err := s.Submit(context.Background(), "hello")
	if !errors.Is(err, session.ErrAgentUnavailable) {
		t.Fatalf("expected ErrAgentUnavailable, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestSubmitBadReplyIsNotUnavailable(t *testing.T) {
	var calls int
	cause := fmt.Errorf("%w: no choices in response", session.ErrBadReply)
	s := session.New(&scriptedAgent{err: cause}, newRegistry(t, &calls), session.Options{})

	_, err := s.Submit(context.Background(), "hello")
	if !errors.Is(err, session.ErrBadReply) {
		t.Fatalf("expected ErrBadReply, got %v", err)
	}
	if errors.Is(err, session.ErrAgentUnavailable) {
		t.Fatalf("a bad reply must not look like an unreachable agent: %v", err)
	}
}

func TestSubmitUndecodableArgumentsBecomeToolFailure(t *testing.T) {
	var calls int
	agent := &scriptedAgent{replies: []session.Reply{
		{Calls: []tool.Call{{ID: "o1", Name: "open_app", ArgsError: "unexpected end of JSON input"}}},
		{Text: "I could not understand the app name."},
	}}
	s := session.New(agent, newRegistry(t, &calls), session.Options{})

	res, err := s.Submit(context.Background(), "open")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if calls != 0 {
		t.Fatalf("handler ran %d times", calls)
	}
	if len(res.Invocations) != 1 || !strings.HasPrefix(res.Invocations[0].Failure, "invalid arguments for open_app") {
		t.Fatalf("invocations = %+v", res.Invocations)
	}

	// the agent reads the failure back on the next exchange
	second := agent.seen[1]
	if last := second[len(second)-1]; last.Role != session.RoleTool || last.Text != res.Invocations[0].Failure {
		t.Fatalf("failure not replayed: %+v", last)
	}
	if res.Reply != "I could not understand the app name." {
		t.Fatalf("reply = %q", res.Reply)
	}
}

func TestSubmitEmptyReplyFallback(t *testing.T) {
	var calls int
	s := session.New(&scriptedAgent{replies: []session.Reply{{Text: "  "}}}, newRegistry(t, &calls), session.Options{})

	res, err := s.Submit(context.Background(), "hmm")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Reply != session.EmptyReply {
		t.Fatalf("reply = %q", res.Reply)
	}
}

func TestSubmitAssignsMissingCallIDs(t *testing.T) {
	var calls int
	agent := &scriptedAgent{replies: []session.Reply{
		{Calls: []tool.Call{{Name: "get_time"}}},
		{Text: "ok"},
	}}
	s := session.New(agent, newRegistry(t, &calls), session.Options{})

	res, err := s.Submit(context.Background(), "time")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.HasPrefix(res.Invocations[0].CallID, "call_") {
		t.Fatalf("call id not assigned: %q", res.Invocations[0].CallID)
	}
}

func TestSubmitIsDeterministic(t *testing.T) {
	script := func() *scriptedAgent {
		return &scriptedAgent{replies: []session.Reply{
			{Calls: []tool.Call{{ID: "c1", Name: "get_time"}}},
			{Text: "It is 03:04 PM."},
		}}
	}

	var calls int
	first, err := session.New(script(), newRegistry(t, &calls), session.Options{}).Submit(context.Background(), "what time is it")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := session.New(script(), newRegistry(t, &calls), session.Options{}).Submit(context.Background(), "what time is it")
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ:\n%+v\n%+v", first, second)
	}
}

func TestReset(t *testing.T) {
	var calls int
	s := session.New(&scriptedAgent{}, newRegistry(t, &calls), session.Options{})
	id := s.ID()

	if _, err := s.Submit(context.Background(), "hi"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	s.Reset()

	if len(s.History()) != 0 {
		t.Fatalf("history not cleared")
	}
	if s.ID() == id {
		t.Fatalf("session id not rotated")
	}
}
