// Package agent implements model-backed participants for team runs.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/domjanbaric/agnetic-finance-workshop/internal/adapter/model"
	"github.com/domjanbaric/agnetic-finance-workshop/internal/domain"
	"github.com/domjanbaric/agnetic-finance-workshop/internal/tools"
	"github.com/domjanbaric/agnetic-finance-workshop/policy"
	"github.com/google/uuid"
)

// DefaultMaxToolRounds bounds the tool-call loop within one turn.
const DefaultMaxToolRounds = 8

// ToolObserver is notified of every tool invocation an assistant makes.
type ToolObserver func(domain.ToolCall)

// Config wires an Assistant. Everything is injected at construction; the
// assistant holds no ambient state.
type Config struct {
	Name          string
	SystemPrompt  string
	ModelName     string
	Client        model.Client
	Tools         *tools.Registry
	Policy        *policy.Engine
	MaxToolRounds int
	Temperature   *float64
	Logger        *slog.Logger
	ToolObserver  ToolObserver
}

// Assistant is a participant that answers through a chat completion model,
// optionally calling its fixed set of tools mid-turn.
type Assistant struct {
	name          string
	systemPrompt  string
	modelName     string
	client        model.Client
	tools         *tools.Registry
	policy        *policy.Engine
	maxToolRounds int
	temperature   *float64
	log           *slog.Logger
	onToolCall    ToolObserver
}

var _ domain.Participant = (*Assistant)(nil)

// NewAssistant validates cfg and builds the participant.
func NewAssistant(cfg Config) (*Assistant, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("assistant name is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("model client is required")
	}
	if cfg.Tools == nil {
		cfg.Tools = tools.NewRegistry()
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = DefaultMaxToolRounds
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Assistant{
		name:          cfg.Name,
		systemPrompt:  cfg.SystemPrompt,
		modelName:     cfg.ModelName,
		client:        cfg.Client,
		tools:         cfg.Tools,
		policy:        cfg.Policy,
		maxToolRounds: cfg.MaxToolRounds,
		temperature:   cfg.Temperature,
		log:           cfg.Logger,
		onToolCall:    cfg.ToolObserver,
	}, nil
}

func (a *Assistant) Name() string { return a.name }

// Invoke runs one turn: it sends the transcript to the model, resolves any
// proposed tool calls through the policy gate and registry, feeds results
// back, and returns the final text as a single message. An empty final text
// yields zero messages.
func (a *Assistant) Invoke(ctx context.Context, transcript []domain.Message) ([]domain.Message, error) {
	messages := a.buildMessages(transcript)

	for round := 0; round < a.maxToolRounds; round++ {
		req := &model.ChatRequest{
			Model:       a.modelName,
			Messages:    messages,
			Tools:       a.tools.Definitions(),
			Temperature: a.temperature,
		}
		resp, err := a.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("completion failed: %w", err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
			return nil, fmt.Errorf("completion returned no choices")
		}
		reply := resp.Choices[0].Message

		if len(reply.ToolCalls) == 0 {
			content := strings.TrimSpace(reply.Content)
			if content == "" {
				return nil, nil
			}
			return []domain.Message{{Source: a.name, Content: content}}, nil
		}

		messages = append(messages, *reply)
		for _, tc := range reply.ToolCalls {
			result := a.executeToolCall(ctx, tc)
			messages = append(messages, model.ChatMessage{
				Role:       "tool",
				Content:    string(result),
				ToolCallID: tc.ID,
			})
		}
	}

	return nil, fmt.Errorf("tool loop exceeded %d rounds", a.maxToolRounds)
}

// executeToolCall resolves one proposed call. Policy blocks and execution
// failures are reported back to the model as error payloads instead of
// aborting the turn.
func (a *Assistant) executeToolCall(ctx context.Context, tc model.ToolCall) json.RawMessage {
	args := json.RawMessage(tc.Function.Arguments)
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	record := domain.ToolCall{
		ToolCallID:  "tc_" + uuid.New().String()[:8],
		Participant: a.name,
		ToolName:    tc.Function.Name,
		Args:        args,
		CreatedAt:   time.Now(),
	}

	result, status, errMsg := a.resolve(ctx, tc.Function.Name, args)

	record.Status = status
	record.Result = result
	record.Error = errMsg
	completed := time.Now()
	record.CompletedAt = &completed
	if a.onToolCall != nil {
		a.onToolCall(record)
	}

	if errMsg != "" {
		payload, _ := json.Marshal(map[string]string{"error": errMsg})
		return payload
	}
	return result
}

func (a *Assistant) resolve(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, domain.ToolCallStatus, string) {
	if a.policy != nil {
		var argsMap map[string]interface{}
		_ = json.Unmarshal(args, &argsMap)

		decision, err := a.policy.Evaluate(ctx, policy.Input{
			ToolName:    name,
			Participant: a.name,
			Args:        argsMap,
		})
		if err != nil {
			return nil, domain.ToolCallStatusFailed, fmt.Sprintf("policy evaluation failed: %v", err)
		}
		if decision == policy.DecisionBlock {
			a.log.Warn("tool blocked by policy", "tool", name, "participant", a.name)
			return nil, domain.ToolCallStatusBlocked, fmt.Sprintf("tool %s blocked by policy", name)
		}
	}

	result, err := a.tools.Execute(ctx, name, args)
	if err != nil {
		a.log.Warn("tool execution failed", "tool", name, "error", err)
		return nil, domain.ToolCallStatusFailed, err.Error()
	}
	return result, domain.ToolCallStatusSucceeded, ""
}

// buildMessages maps the shared transcript onto chat roles. The assistant's
// own past messages become assistant turns; everything else arrives as user
// turns tagged with the source name so the model can tell speakers apart.
func (a *Assistant) buildMessages(transcript []domain.Message) []model.ChatMessage {
	messages := make([]model.ChatMessage, 0, len(transcript)+1)
	if a.systemPrompt != "" {
		messages = append(messages, model.ChatMessage{Role: "system", Content: a.systemPrompt})
	}
	for _, m := range transcript {
		switch m.Source {
		case a.name:
			messages = append(messages, model.ChatMessage{Role: "assistant", Content: m.Content})
		case domain.SourceUser:
			messages = append(messages, model.ChatMessage{Role: "user", Content: m.Content})
		default:
			messages = append(messages, model.ChatMessage{Role: "user", Name: m.Source, Content: m.Content})
		}
	}
	return messages
}
