package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	// Active LLM provider: "openai", "glm", "gemini", "mistral" or "openrouter"
	LLMProvider string

	OpenAIAPIKey     string
	GLMAPIKey        string
	GeminiAPIKey     string
	MistralAPIKey    string
	OpenRouterAPIKey string

	OpenAIModel     string
	GLMModel        string
	GeminiModel     string
	MistralModel    string
	OpenRouterModel string

	TavilyAPIKey string

	DatabaseURL string
	RedisAddr   string

	GoogleClientID     string
	GoogleClientSecret string
	FrontendURL        string

	HTTPPort string
	LogLevel string
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		LLMProvider: getEnv("LLM_PROVIDER", "openai"),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		GLMAPIKey:        getEnv("GLM_API_KEY", ""),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		MistralAPIKey:    getEnv("MISTRAL_API_KEY", ""),
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),

		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		GLMModel:        getEnv("GLM_MODEL", "glm-4.5"),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		MistralModel:    getEnv("MISTRAL_MODEL", "mistral-large-latest"),
		OpenRouterModel: getEnv("OPENROUTER_MODEL", "deepseek/deepseek-chat-v3.1:free"),

		TavilyAPIKey: getEnv("TAVILY_API_KEY", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", ""),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),

		HTTPPort: getEnv("HTTP_PORT", "8000"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
	}

	if AppConfig.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
