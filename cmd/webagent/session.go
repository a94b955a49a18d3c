package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/copaw/webagent/internal/config"
	"github.com/copaw/webagent/internal/gateway"
	"github.com/copaw/webagent/internal/llm"
	"github.com/copaw/webagent/internal/toolserver"
	"github.com/google/uuid"
)

// session bundles what both commands need: config, logger, a model
// client and an exclusive tool-server connection.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	model  llm.Client
	conn   *toolserver.Connection
}

func newSession(ctx context.Context, configPath string, headless bool) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()[:8]
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})).With("run_id", runID)

	model, err := buildModelClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	conn, err := toolserver.Connect(ctx, toolserver.Options{
		Command:  cfg.ToolServer.Command,
		Args:     cfg.ToolServer.Args,
		Env:      cfg.ToolServer.Env,
		Headless: headless,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, logger: logger, model: model, conn: conn}, nil
}

func (s *session) Close() {
	if err := s.conn.Close(); err != nil {
		s.logger.Warn("tool server shutdown", "error", err)
	}
}

// buildModelClient picks the OAuth gateway adapter when a token
// endpoint is configured, otherwise the direct OpenAI client.
func buildModelClient(cfg config.Config, logger *slog.Logger) (llm.Client, error) {
	if cfg.UseGateway() {
		httpClient, err := gateway.NewHTTPClient(cfg.Gateway.CACertPath)
		if err != nil {
			return nil, err
		}
		if cfg.Gateway.BaseURL == "" {
			return nil, fmt.Errorf("OAUTH_TOKEN_URL is set but GATEWAY_BASE_URL is not")
		}
		tokens := gateway.NewTokenCache(gateway.TokenConfig{
			TokenURL:     cfg.Gateway.TokenURL,
			ClientID:     cfg.Gateway.ClientID,
			ClientSecret: cfg.Gateway.ClientSecret,
			GrantType:    cfg.Gateway.GrantType,
			Scope:        cfg.Gateway.Scope,
		}, httpClient)
		return gateway.NewAdapter(gateway.Config{
			BaseURL: cfg.Gateway.BaseURL,
			Model:   cfg.Gateway.Model,
		}, tokens, httpClient, logger), nil
	}
	return llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
}
