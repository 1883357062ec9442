package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studyrobo/backend/internal/api"
	"github.com/studyrobo/backend/internal/config"
	"github.com/studyrobo/backend/internal/core"
	"github.com/studyrobo/backend/internal/googleauth"
	"github.com/studyrobo/backend/internal/llm"
	"github.com/studyrobo/backend/internal/store"
	"github.com/studyrobo/backend/internal/tools"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database setup failed", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("redis ping failed", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
	} else {
		logger.Warn("REDIS_ADDR not set; Gmail OAuth linking is disabled")
	}

	provider, err := llm.NewProvider(ctx, cfg)
	if err != nil {
		logger.Error("LLM provider setup failed", "error", err)
		os.Exit(1)
	}
	logger.Info("LLM provider ready", "provider", cfg.LLMProvider, "model", provider.ModelName())

	// Embeddings always go through OpenAI regardless of the chat provider.
	// Without a key, document search and uploads degrade gracefully.
	var embedder llm.Embedder
	if e, err := llm.NewOpenAIEmbedder(cfg.OpenAIAPIKey); err != nil {
		logger.Warn("embeddings unavailable", "error", err)
	} else {
		embedder = e
	}

	oauthCfg := googleauth.OAuthConfig(cfg)
	states := googleauth.NewStateStore(rdb)
	tokenCache := googleauth.NewTokenCache(rdb)

	registry := tools.NewRegistry(st, embedder, oauthCfg, tokenCache, cfg.TavilyAPIKey)
	chatService := core.NewChatService(st, registry, provider, logger)
	ingestService := core.NewIngestService(st, embedder, logger)

	handler := api.NewHandler(st, chatService, ingestService, registry, oauthCfg, states, logger)
	router := api.NewRouter(handler, cfg.FrontendURL)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
