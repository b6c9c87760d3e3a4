package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/customer360-copilot/backend/internal/config"
	"github.com/customer360-copilot/backend/internal/crm"
	"github.com/customer360-copilot/backend/internal/db"
	httpapi "github.com/customer360-copilot/backend/internal/http"
	"github.com/customer360-copilot/backend/internal/http/handlers"
	"github.com/customer360-copilot/backend/internal/llm"
	"github.com/customer360-copilot/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "customer360-backend").Logger()

	ctx := context.Background()

	var store *db.Store
	if cfg.DatabaseURL != "" {
		store, err = db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect db")
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to ensure schema")
		}
	} else {
		logger.Info().Msg("run ledger disabled, no DATABASE_URL")
	}

	var fetcher crm.Fetcher
	if cfg.SFDomain == "" {
		fetcher = crm.MockFetcher{}
		logger.Info().Msg("using mock CRM fetcher")
	} else {
		fetcher = &crm.SalesforceFetcher{
			Domain:        cfg.SFDomain,
			ClientID:      cfg.SFClientID,
			ClientSecret:  cfg.SFClientSecret,
			Username:      cfg.SFUsername,
			Password:      cfg.SFPassword,
			SecurityToken: cfg.SFSecurityToken,
		}
	}

	var completer llm.Completer
	if cfg.LLMAPIKey == "" {
		completer = llm.MockCompleter{}
		logger.Info().Msg("using mock LLM completer")
	} else {
		completer = llm.NewOpenAICompleter(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	}
	gateway := llm.NewGateway(completer, cfg.LLMMaxRetries)

	analysis := &service.AnalysisService{
		Fetcher:    fetcher,
		Gateway:    gateway,
		Logger:     logger,
		MaxTokens:  cfg.LLMMaxTokens,
		LLMTimeout: cfg.LLMTimeout,
	}
	insights := &service.InsightsService{
		Fetcher:     fetcher,
		Gateway:     gateway,
		Logger:      logger,
		BatchSize:   cfg.InsightsBatchSize,
		Parallelism: cfg.InsightsParallelism,
		MaxTokens:   cfg.LLMMaxTokens,
		LLMTimeout:  cfg.LLMTimeout,
	}
	qa := &service.QAService{
		Fetcher:    fetcher,
		Gateway:    gateway,
		Logger:     logger,
		MaxTokens:  cfg.LLMMaxTokens,
		LLMTimeout: cfg.LLMTimeout,
	}

	h := handlers.New(analysis, insights, qa, fetcher, gateway, store, logger)
	router := httpapi.Router(cfg, h, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
