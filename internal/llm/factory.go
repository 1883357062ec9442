package llm

import (
	"context"
	"fmt"

	"github.com/studyrobo/backend/internal/apperror"
	"github.com/studyrobo/backend/internal/config"
)

const (
	glmBaseURL        = "https://api.z.ai/api/paas/v4"
	mistralBaseURL    = "https://api.mistral.ai/v1"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
)

// NewProvider builds the provider named by cfg.LLMProvider. A missing API
// key or an unknown provider name is a configuration error, surfaced at
// startup rather than on the first chat request.
func NewProvider(ctx context.Context, cfg config.Config) (Provider, error) {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, apperror.Configuration("OPENAI_API_KEY is not set")
		}
		return newOpenAICompatible("openai", cfg.OpenAIAPIKey, "", cfg.OpenAIModel, nil), nil

	case "glm":
		if cfg.GLMAPIKey == "" {
			return nil, apperror.Configuration("GLM_API_KEY is not set")
		}
		return newOpenAICompatible("glm", cfg.GLMAPIKey, glmBaseURL, cfg.GLMModel, nil), nil

	case "mistral":
		if cfg.MistralAPIKey == "" {
			return nil, apperror.Configuration("MISTRAL_API_KEY is not set")
		}
		return newOpenAICompatible("mistral", cfg.MistralAPIKey, mistralBaseURL, cfg.MistralModel, nil), nil

	case "openrouter":
		if cfg.OpenRouterAPIKey == "" {
			return nil, apperror.Configuration("OPENROUTER_API_KEY is not set")
		}
		headers := map[string]string{
			"HTTP-Referer": cfg.FrontendURL,
			"X-Title":      "StudyRobo",
		}
		return newOpenAICompatible("openrouter", cfg.OpenRouterAPIKey, openRouterBaseURL, cfg.OpenRouterModel, headers), nil

	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, apperror.Configuration("GEMINI_API_KEY is not set")
		}
		return newGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)

	default:
		return nil, apperror.Configuration(fmt.Sprintf("unknown LLM provider %q", cfg.LLMProvider))
	}
}
