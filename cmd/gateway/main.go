package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/veilgate/veilgate/pkg/config"
	"github.com/veilgate/veilgate/pkg/guardrail"
	handlers "github.com/veilgate/veilgate/pkg/handlers/http"
	infraLogger "github.com/veilgate/veilgate/pkg/infra/logger"
	"github.com/veilgate/veilgate/pkg/infra/providers"
	"github.com/veilgate/veilgate/pkg/infra/providers/factory"
	"github.com/veilgate/veilgate/pkg/middleware"
	"github.com/veilgate/veilgate/pkg/server"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	logger := infraLogger.NewLogger()

	if err := config.Load("./config"); err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	cfg := config.GetConfig()

	var gate *guardrail.Gate
	if cfg.Guardrails.Enabled {
		policy, err := guardrail.LoadPolicy(cfg.Guardrails.PolicyFile)
		if err != nil {
			if errors.Is(err, guardrail.ErrPolicyNotFound) {
				// Fail toward availability: run with the built-in moderate
				// policy rather than refusing to start.
				logger.WithField("policy_file", cfg.Guardrails.PolicyFile).
					Warn("policy file not found, using default moderate policy")
				policy = guardrail.DefaultPolicy()
			} else {
				logger.Fatalf("invalid guardrail policy: %v", err)
			}
		}
		gate = guardrail.NewGate(policy, logger)
	} else {
		logger.Warn("guardrails disabled, all traffic passes through unchecked")
	}

	locator := factory.NewProviderLocator()
	providerClient, err := locator.Get(cfg.Provider.Name)
	if err != nil {
		logger.Fatalf("failed to initialize provider: %v", err)
	}
	providerClient = providers.NewBreakerClient(cfg.Provider.Name, providerClient, logger)

	providerCfg := providers.Config{
		Credentials:  providers.Credentials{ApiKey: cfg.Provider.APIKey},
		Model:        cfg.Provider.Model,
		MaxTokens:    cfg.Provider.MaxTokens,
		Temperature:  cfg.Provider.Temperature,
		SystemPrompt: cfg.Provider.SystemPrompt,
	}

	var guardrailMiddleware *middleware.GuardrailMiddleware
	if gate != nil {
		guardrailMiddleware = middleware.NewGuardrailMiddleware(logger, gate)
	}

	srv := server.NewGatewayServer(server.GatewayServerDI{
		Config:              cfg,
		Logger:              logger,
		GuardrailMiddleware: guardrailMiddleware,
		ChatHandler:         handlers.NewChatHandler(logger, gate, providerClient, cfg.Provider.Name, providerCfg),
	})

	go func() {
		if err := srv.Run(); err != nil {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server...")
	if err := srv.Shutdown(); err != nil {
		logger.WithError(err).Error("error shutting down server")
		os.Exit(1)
	}
	logger.Info("server gracefully stopped")
}
