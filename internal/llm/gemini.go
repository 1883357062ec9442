package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/studyrobo/backend/internal/apperror"
)

// geminiProvider adapts Gemini's content API to the normalized completion
// shape. Gemini has no system role and no assistant echo in single-shot
// calls, so system messages are folded into the prompt as "System: ..."
// lines and assistant turns are dropped.
type geminiProvider struct {
	model  string
	client *genai.Client
}

func newGemini(ctx context.Context, apiKey, model string) (*geminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &geminiProvider{model: model, client: client}, nil
}

func (p *geminiProvider) ModelName() string { return p.model }

func (p *geminiProvider) Close() error { return p.client.Close() }

func (p *geminiProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*Completion, error) {
	model := p.client.GenerativeModel(p.model)
	model.SetMaxOutputTokens(int32(req.maxTokens()))
	model.SetTemperature(req.temperature())

	if len(req.Tools) > 0 {
		tool := &genai.Tool{}
		for _, t := range req.Tools {
			tool.FunctionDeclarations = append(tool.FunctionDeclarations, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGeminiSchema(t.Parameters),
			})
		}
		model.Tools = []*genai.Tool{tool}
	}

	prompt := flattenMessages(req.Messages)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, apperror.Externalf("gemini completion failed: %v", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, apperror.External("gemini returned no candidates")
	}

	msg := ChoiceMessage{}
	callN := 0
	for _, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			msg.Content += string(v)
		case genai.FunctionCall:
			args, err := json.Marshal(v.Args)
			if err != nil {
				return nil, fmt.Errorf("marshaling gemini function args: %w", err)
			}
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				ID:       fmt.Sprintf("call_%d", callN),
				Function: FunctionCall{Name: v.Name, Arguments: string(args)},
			})
			callN++
		}
	}

	return &Completion{Choices: []Choice{{Message: msg}}}, nil
}

func flattenMessages(messages []ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			b.WriteString("System: ")
			b.WriteString(m.Content)
			b.WriteString("\n\n")
		case RoleUser:
			b.WriteString(m.Content)
			b.WriteString("\n")
		}
		// assistant turns are dropped; Gemini rebuilds its own context
	}
	return strings.TrimSpace(b.String())
}

// toGeminiSchema converts an OpenAI JSON-schema parameter object into the
// genai schema type. Only the subset the tool declarations use is mapped.
func toGeminiSchema(params map[string]any) *genai.Schema {
	if params == nil {
		return nil
	}
	schema := &genai.Schema{Type: geminiType(params["type"])}
	if desc, ok := params["description"].(string); ok {
		schema.Description = desc
	}
	if props, ok := params["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				schema.Properties[name] = toGeminiSchema(pm)
			}
		}
	}
	if required, ok := params["required"].([]string); ok {
		schema.Required = required
	} else if raw, ok := params["required"].([]any); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	if items, ok := params["items"].(map[string]any); ok {
		schema.Items = toGeminiSchema(items)
	}
	return schema
}

func geminiType(t any) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}
