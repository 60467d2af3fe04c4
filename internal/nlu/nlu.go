package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"

	"vecna/internal/session"
	"vecna/internal/tool"
)

const DefaultSystemPrompt = `You are Vecna. You control the user's PC.
Capabilities: Open/Close apps, Play music (YouTube), Control volume/brightness,
Take screenshots, Check Date/Time, Search Wikipedia, and CHECK WEATHER.
If the user says a city name (e.g. 'Paris'), check the weather for that city.
IMPORTANT: If a tool returns an error, SPEAK THAT EXACT ERROR.
KEEP RESPONSES VERY SHORT (under 2 sentences). Plain text only, it will be read aloud.`

// Agent is a session.Agent backed by the OpenAI chat completions API
// with function tools.
type Agent struct {
	client       openai.Client
	model        string
	systemPrompt string
	log          *log.Logger
}

type Options struct {
	Model        string
	SystemPrompt string
	Logger       *log.Logger
}

func New(client openai.Client, opt Options) *Agent {
	if opt.Model == "" {
		opt.Model = string(openai.ChatModelGPT5Nano)
	}
	if opt.SystemPrompt == "" {
		opt.SystemPrompt = DefaultSystemPrompt
	}
	if opt.Logger == nil {
		opt.Logger = log.Default()
	}
	return &Agent{
		client:       client,
		model:        opt.Model,
		systemPrompt: opt.SystemPrompt,
		log:          opt.Logger,
	}
}

func (a *Agent) Converse(ctx context.Context, history []session.Turn, tools []tool.Spec) (session.Reply, error) {
	msgs, err := buildMessages(a.systemPrompt, history)
	if err != nil {
		return session.Reply{}, err
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: msgs,
		Tools:    buildTools(tools),
		Model:    openai.ChatModel(a.model),
	})
	if err != nil {
		return session.Reply{}, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return session.Reply{}, fmt.Errorf("%w: no choices in response", session.ErrBadReply)
	}

	msg := resp.Choices[0].Message
	reply := session.Reply{Text: msg.Content}

	for _, tc := range msg.ToolCalls {
		if tc.Function.Name == "" {
			continue
		}

		call := tool.Call{ID: tc.ID, Name: tc.Function.Name, Args: tool.Args{}}
		if raw := tc.Function.Arguments; raw != "" {
			if err := json.Unmarshal([]byte(raw), &call.Args); err != nil {
				a.log.Warn("Undecodable tool arguments", "tool", call.Name, "raw", raw, "err", err)
				call.Args = nil
				call.ArgsError = err.Error()
			}
		}

		reply.Calls = append(reply.Calls, call)
	}

	a.log.Debug("Processed", "content", reply.Text, "calls", len(reply.Calls))
	return reply, nil
}

func buildTools(specs []tool.Spec) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(specs))
	for _, s := range specs {
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        s.Name,
			Description: openai.String(s.Description),
			Parameters:  openai.FunctionParameters(s.Schema()),
		}))
	}
	return out
}

// buildMessages replays the history. A run of tool turns becomes one
// assistant message carrying the calls, followed by one tool message per result.
func buildMessages(system string, history []session.Turn) ([]openai.ChatCompletionMessageParamUnion, error) {
	msgs := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(system)}

	for i := 0; i < len(history); i++ {
		t := history[i]

		switch t.Role {
		case session.RoleUser:
			msgs = append(msgs, openai.UserMessage(t.Text))

		case session.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(t.Text))

		case session.RoleTool:
			j := i
			for j < len(history) && history[j].Role == session.RoleTool {
				j++
			}
			run := history[i:j]
			i = j - 1

			calls := make([]openai.ChatCompletionMessageToolCallUnionParam, 0, len(run))
			for _, tt := range run {
				if tt.Call == nil {
					return nil, fmt.Errorf("tool turn %d has no call", tt.Seq)
				}
				args := tt.Call.Args
				if args == nil {
					args = tool.Args{}
				}
				raw, err := json.Marshal(args)
				if err != nil {
					return nil, fmt.Errorf("marshal arguments for %s: %w", tt.Call.Name, err)
				}
				calls = append(calls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tt.Call.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tt.Call.Name,
							Arguments: string(raw),
						},
					},
				})
			}

			msgs = append(msgs, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{ToolCalls: calls},
			})
			for _, tt := range run {
				msgs = append(msgs, openai.ToolMessage(tt.Text, tt.Call.ID))
			}

		default:
			return nil, fmt.Errorf("unknown role %q", t.Role)
		}
	}

	return msgs, nil
}
