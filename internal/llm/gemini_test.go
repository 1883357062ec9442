package llm

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenMessages(t *testing.T) {
	messages := []ChatMessage{
		{Role: RoleSystem, Content: "You are a study assistant."},
		{Role: RoleUser, Content: "Explain binary search"},
		{Role: RoleAssistant, Content: "this turn should be dropped"},
		{Role: RoleUser, Content: "with an example"},
	}

	got := flattenMessages(messages)
	assert.Contains(t, got, "System: You are a study assistant.")
	assert.Contains(t, got, "Explain binary search")
	assert.Contains(t, got, "with an example")
	assert.NotContains(t, got, "dropped")
}

func TestToGeminiSchema(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "search query",
			},
			"max_results": map[string]any{"type": "integer"},
		},
		"required": []string{"query"},
	}

	schema := toGeminiSchema(params)
	require.NotNil(t, schema)
	assert.Equal(t, genai.TypeObject, schema.Type)
	require.Contains(t, schema.Properties, "query")
	assert.Equal(t, genai.TypeString, schema.Properties["query"].Type)
	assert.Equal(t, "search query", schema.Properties["query"].Description)
	assert.Equal(t, genai.TypeInteger, schema.Properties["max_results"].Type)
	assert.Equal(t, []string{"query"}, schema.Required)
}

func TestToGeminiSchemaNil(t *testing.T) {
	assert.Nil(t, toGeminiSchema(nil))
}
