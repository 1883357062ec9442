// Package llm normalizes several chat-completion vendors behind one
// provider interface so the rest of the service never sees vendor SDKs.
package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string
	Content string
}

// Tool is an OpenAI-style function declaration. Parameters holds a JSON
// schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type CompletionRequest struct {
	Messages    []ChatMessage
	Tools       []Tool
	ToolChoice  string // "auto", "none" or empty
	MaxTokens   int    // defaults to 1000
	Temperature float32
}

type FunctionCall struct {
	Name      string
	Arguments string // JSON-encoded
}

type ToolCall struct {
	ID       string
	Function FunctionCall
}

type ChoiceMessage struct {
	Content   string
	ToolCalls []ToolCall
}

type Choice struct {
	Message ChoiceMessage
}

type Completion struct {
	Choices []Choice
}

// Provider produces chat completions in the normalized shape above.
type Provider interface {
	CreateCompletion(ctx context.Context, req CompletionRequest) (*Completion, error)
	ModelName() string
}

// Embedder turns text into a vector suitable for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

func (r *CompletionRequest) maxTokens() int {
	if r.MaxTokens <= 0 {
		return 1000
	}
	return r.MaxTokens
}

func (r *CompletionRequest) temperature() float32 {
	if r.Temperature <= 0 {
		return 0.3
	}
	return r.Temperature
}
