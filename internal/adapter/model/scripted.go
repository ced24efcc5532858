package model

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ScriptFunc computes the next completion for a request.
type ScriptFunc func(req *ChatRequest) (*ChatMessage, error)

// ScriptedClient is an offline Client used in workshop mode and tests. It
// answers from a script function, or with a canned echo when none is set.
type ScriptedClient struct {
	mu     sync.Mutex
	script ScriptFunc
	calls  int
}

var _ Client = (*ScriptedClient)(nil)

// NewScriptedClient creates a scripted client. A nil script yields canned
// echo responses.
func NewScriptedClient(script ScriptFunc) *ScriptedClient {
	return &ScriptedClient{script: script}
}

// Calls reports how many completions have been served.
func (c *ScriptedClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// CreateChatCompletion serves the next scripted completion.
func (c *ScriptedClient) CreateChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.calls++
	n := c.calls
	script := c.script
	c.mu.Unlock()

	var msg *ChatMessage
	if script != nil {
		var err error
		msg, err = script(req)
		if err != nil {
			return nil, err
		}
	} else {
		msg = &ChatMessage{Role: "assistant", Content: canned(req)}
	}
	if msg.Role == "" {
		msg.Role = "assistant"
	}

	return &ChatResponse{
		ID:      fmt.Sprintf("scripted-%d", n),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{{Index: 0, Message: msg, FinishReason: "stop"}},
		Usage:   &Usage{},
	}, nil
}

func canned(req *ChatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return fmt.Sprintf("[scripted] received: %s", truncate(req.Messages[i].Content, 80))
		}
	}
	return "[scripted] nothing to answer"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
