// Package model defines the provider-agnostic interface the planner's optional
// LLM-backed classifier uses to talk to a language model.
package model

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentkernel/core"
)

// Request captures a single generation call: an instruction (system prompt)
// plus the conversational content leading up to it.
type Request struct {
	Instructions string         `json:"instructions"`
	Contents     []core.Content `json:"contents"`
	Stream       bool           `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a streaming model.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"`
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Model is the minimal interface the planner requires to drive intent
// classification. Providers stream Response chunks and report a single
// terminal error, if any.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests and the demo CLI.
type MockModel struct {
	info      Info
	responses map[string]string
}

// NewMockModel constructs a MockModel that echoes canned completions.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// Generate implements Model; emits the final response only (no streaming),
// which is all the planner's classifier needs.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)
		if len(req.Contents) == 0 {
			errCh <- fmt.Errorf("model: no contents provided")
			return
		}
		last := req.Contents[len(req.Contents)-1]
		inputText := last.Text()
		full := m.responses[inputText]
		if full == "" {
			full = fmt.Sprintf(`{"intents":["general"],"note":"mock response to: %s"}`, inputText)
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
			return
		case respCh <- Response{
			Partial:      false,
			Content:      core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: full}}},
			FinishReason: "stop",
		}:
		}
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
