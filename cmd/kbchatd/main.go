package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"kbchat/internal/analytics"
	"kbchat/internal/api"
	"kbchat/internal/chat"
	"kbchat/internal/chat/adapters"
	ports "kbchat/internal/chat/ports"
	"kbchat/internal/config"
	"kbchat/internal/db"
	"kbchat/internal/kb"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Credentials come from the environment; a local .env is optional.
	_ = godotenv.Load()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// A missing database is a degraded start, not a fatal one: the
	// service keeps answering from the in-memory fallback stores.
	var sqlDB *sql.DB
	if conn, err := db.Connect(cfg.Database.Path, logger); err != nil {
		logger.Warn().Err(err).Msg("database unavailable, running on fallback stores")
	} else if err := db.Migrate(conn); err != nil {
		logger.Warn().Err(err).Msg("migrations failed, running on fallback stores")
		conn.Close()
	} else {
		sqlDB = conn
		defer sqlDB.Close()
		logger.Info().Str("path", cfg.Database.Path).Msg("database connected")
	}

	health := db.NewHealth(sqlDB, cfg.Database.PingTimeout)

	var (
		articleStore ports.ArticleStore
		convStore    ports.ConversationStore
		sink         ports.AnalyticsSink
	)
	if sqlDB != nil {
		articleStore = adapters.NewLibSQLArticleStore(sqlDB)
		convStore = adapters.NewLibSQLConversationStore(sqlDB)
		sink = adapters.NewLibSQLAnalyticsSink(sqlDB)
	}
	fallbackArticles := adapters.NewMemoryArticleStore(cfg.Chat.MinKeywordLen)
	fallbackConvs := adapters.NewMemoryConversationStore()

	providers := []ports.Provider{
		adapters.NewOpenAIProvider("openai",
			cfg.Providers.OpenAI.BaseURL, cfg.Providers.OpenAI.APIKey,
			cfg.Providers.OpenAI.Model, cfg.Providers.MaxTokens),
		adapters.NewOpenAIProvider("huggingface",
			cfg.Providers.HuggingFace.BaseURL, cfg.Providers.HuggingFace.APIKey,
			cfg.Providers.HuggingFace.Model, cfg.Providers.MaxTokens),
	}

	providerChain := chat.NewChain(providers, cfg.Providers.Timeout, logger)

	orchestrator := chat.NewOrchestrator(
		health,
		convStore, fallbackConvs,
		articleStore, fallbackArticles,
		chat.NewRetriever(articleStore, fallbackArticles, cfg.Chat.ContextLimit, logger),
		chat.NewPromptBuilder(cfg.Chat.HistoryWindow),
		providerChain,
		sink,
		cfg.Chat.SuggestionLimit,
		logger,
	)

	analyticsSvc := analytics.NewService(sqlDB, cfg.Analytics.RecentLimit)

	server := api.New(
		orchestrator,
		kb.NewService(health, articleStore, fallbackArticles, logger),
		analyticsSvc,
		logger,
	)

	config.Watch(cfg, logger, func(c *config.Config) {
		providerChain.SetTimeout(c.Providers.Timeout)
		orchestrator.SetSuggestionLimit(c.Chat.SuggestionLimit)
		analyticsSvc.SetRecentLimit(c.Analytics.RecentLimit)
	})

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Handler(),
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
	logger.Info().Msg("server stopped")
}
