package llm

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/studyrobo/backend/internal/apperror"
)

// openAIProvider speaks the OpenAI chat-completion wire format. GLM,
// Mistral and OpenRouter expose the same API on different base URLs, so
// one implementation covers all four vendors.
type openAIProvider struct {
	name   string
	model  string
	client *openai.Client
}

func newOpenAICompatible(name, apiKey, baseURL, model string, headers map[string]string) *openAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if len(headers) > 0 {
		cfg.HTTPClient = &http.Client{
			Transport: &headerTransport{headers: headers, base: http.DefaultTransport},
		}
	}
	return &openAIProvider{
		name:   name,
		model:  model,
		client: openai.NewClientWithConfig(cfg),
	}
}

func (p *openAIProvider) ModelName() string { return p.model }

func (p *openAIProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*Completion, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	var tools []openai.Tool
	for _, t := range req.Tools {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	var toolChoice any
	if req.ToolChoice != "" {
		toolChoice = req.ToolChoice
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Tools:       tools,
		ToolChoice:  toolChoice,
		MaxTokens:   req.maxTokens(),
		Temperature: req.temperature(),
	})
	if err != nil {
		return nil, apperror.Externalf("%s completion failed: %v", p.name, err)
	}

	completion := &Completion{}
	for _, c := range resp.Choices {
		choice := Choice{Message: ChoiceMessage{Content: c.Message.Content}}
		for _, tc := range c.Message.ToolCalls {
			choice.Message.ToolCalls = append(choice.Message.ToolCalls, ToolCall{
				ID: tc.ID,
				Function: FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		completion.Choices = append(completion.Choices, choice)
	}
	if len(completion.Choices) == 0 {
		return nil, apperror.Externalf("%s returned no choices", p.name)
	}
	return completion, nil
}

// headerTransport injects static headers on every request. OpenRouter
// wants HTTP-Referer and X-Title for app attribution.
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for k, v := range t.headers {
		clone.Header.Set(k, v)
	}
	return t.base.RoundTrip(clone)
}

// openAIEmbedder produces text-embedding-3-small vectors (1536 dims).
type openAIEmbedder struct {
	client *openai.Client
}

func NewOpenAIEmbedder(apiKey string) (Embedder, error) {
	if apiKey == "" {
		return nil, apperror.Configuration("OPENAI_API_KEY is required for embeddings")
	}
	return &openAIEmbedder{client: openai.NewClient(apiKey)}, nil
}

func (e *openAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.SmallEmbedding3,
		Input: []string{text},
	})
	if err != nil {
		return nil, apperror.Externalf("embedding failed: %v", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}
	return resp.Data[0].Embedding, nil
}
