package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/joho/godotenv"

	"github.com/vbonduro/skintell/internal/advisor"
	"github.com/vbonduro/skintell/internal/advisor/claude"
	"github.com/vbonduro/skintell/internal/advisor/gemini"
	"github.com/vbonduro/skintell/internal/advisor/ollama"
	"github.com/vbonduro/skintell/internal/advisor/openai"
	"github.com/vbonduro/skintell/internal/advisor/relay"
	"github.com/vbonduro/skintell/internal/capture"
	"github.com/vbonduro/skintell/internal/config"
	"github.com/vbonduro/skintell/internal/db"
	"github.com/vbonduro/skintell/internal/logging"
	"github.com/vbonduro/skintell/internal/photostore/local"
	"github.com/vbonduro/skintell/internal/secrets/paramstore"
	"github.com/vbonduro/skintell/internal/service"
	"github.com/vbonduro/skintell/internal/session"
	"github.com/vbonduro/skintell/internal/store"
	"github.com/vbonduro/skintell/internal/web"
)

const sweepInterval = time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	photoStg, err := local.NewLocalPhotoStore(cfg.PhotoPath)
	if err != nil {
		logger.Error("failed to initialize photo store", "error", err)
		return
	}

	provider, err := newProvider(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize advisor", "backend", cfg.AdvisorBackend, "error", err)
		return
	}
	client := advisor.NewClient(provider, logger)
	resolver := advisor.NewPhotoResolver(photoStg)

	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		logger.Error("invalid NODE_ID", "node_id", cfg.NodeID, "error", err)
		return
	}

	scanService := service.NewScanService(store.NewScanStore(database), photoStg, client, logger)

	var camera capture.Camera
	if cfg.CameraSnapshotURL != "" {
		camera = capture.NewSnapshotCamera(cfg.CameraSnapshotURL)
		logger.Info("camera configured", "url", cfg.CameraSnapshotURL)
	}

	sessions := session.NewManager(session.Deps{
		Advisor:  client,
		Resolver: resolver,
		Analyzer: scanService,
		Camera:   camera,
		Node:     node,
		Logger:   logger,
	}, cfg.SessionTTL)
	go sessions.Run(ctx, sweepInterval)

	server := web.NewServer(sessions, scanService, client, resolver, photoStg, logger)
	if err := server.ListenAndServe(ctx, cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
	}
}

func newProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (advisor.Provider, error) {
	if cfg.AdvisorBackend == "relay" {
		if cfg.RelayURL == "" {
			return nil, errors.New("RELAY_URL is required when ADVISOR_BACKEND=relay")
		}
		logger.Info("using relay advisor backend", "url", cfg.RelayURL)
		return relay.NewRelayAdvisor(cfg.RelayURL), nil
	}
	if cfg.AdvisorBackend == "ollama" {
		logger.Info("using Ollama advisor backend", "model", cfg.OllamaModel)
		return ollama.NewOllamaAdvisor(cfg.OllamaHost, cfg.OllamaModel), nil
	}

	apiKey, err := resolveAPIKey(ctx, cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.AdvisorBackend {
	case "claude":
		logger.Info("using Claude advisor backend", "model", cfg.ClaudeModel)
		return claude.NewClaudeAdvisor(apiKey, cfg.ClaudeModel, ""), nil
	case "openai":
		logger.Info("using OpenAI advisor backend", "model", cfg.OpenAIModel)
		return openai.NewOpenAIAdvisor(apiKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), nil
	case "gemini":
		logger.Info("using Gemini advisor backend", "model", cfg.GeminiModel)
		return gemini.NewGeminiAdvisor(apiKey, cfg.GeminiModel, cfg.GeminiBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown ADVISOR_BACKEND %q", cfg.AdvisorBackend)
	}
}

// resolveAPIKey prefers the SSM parameter named by API_KEY_PARAM over the
// backend's *_API_KEY variable.
func resolveAPIKey(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.APIKeyParam != "" {
		ps, err := paramstore.NewFromEnvironment(ctx)
		if err != nil {
			return "", err
		}
		return ps.Get(ctx, cfg.APIKeyParam)
	}
	if key := cfg.APIKey(); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("an API key is required for ADVISOR_BACKEND=%s", cfg.AdvisorBackend)
}
