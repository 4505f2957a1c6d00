package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"artlens/cache"
	"artlens/config"
	"artlens/core/agent"
	"artlens/core/prompt"
	"artlens/core/speech"
	"artlens/db"
	"artlens/logger"
	"artlens/repository"
	"artlens/server"
	"artlens/storage"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the ArtLens HTTP server",
	Long:  `Start the HTTP API, the /ws/player playback socket and the /media proxy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func initLogger(cfg *config.Config) {
	logger.InitLogger(logger.Config{
		Level:      logger.ParseLevel(cfg.LogLevel),
		OutputPath: cfg.LogFile,
	})
}

func runServer() error {
	cfg := config.Load()
	initLogger(cfg)
	defer logger.Sync()

	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required to verify bearer tokens")
	}
	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, analysis and chat will return fallback text")
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		return err
	}
	defer db.CloseGormDB()
	if err := db.AutoMigrate(db.GormDB); err != nil {
		return err
	}

	// Redis only backs the narration cache, so the server runs without it.
	var urlCache speech.URLCache
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("Redis unavailable, narration cache disabled", logger.ErrorField(err))
	} else {
		defer db.CloseRedis()
		urlCache = cache.NewNarrationCache(db.RedisClient, cfg.NarrationCacheTTL)
	}

	var (
		mediaStore     server.MediaStore
		narrationStore speech.ObjectStore
	)
	if cfg.StorageEnabled() {
		store, err := openObjectStore(cfg)
		if err != nil {
			return err
		}
		mediaStore, narrationStore = store, store
	} else {
		logger.Warn("MinIO credentials not set, artworks and narrations are returned inline")
	}

	prompts, err := prompt.NewStore(cfg.PromptDir)
	if err != nil {
		return err
	}
	defer prompts.Close()
	if err := prompts.Watch(); err != nil {
		logger.Warn("Prompt hot reload disabled", logger.ErrorField(err))
	}

	artAgent := agent.NewArtAgent(&agent.Config{
		APIKey:          cfg.OpenAIAPIKey,
		BaseURL:         cfg.OpenAIBaseURL,
		VisionModel:     cfg.VisionModel,
		ChatModel:       cfg.ChatModel,
		TranscribeModel: cfg.TranscribeModel,
	}, prompts)
	narrator := speech.NewNarrator(speech.NewSynthesizer(cfg, artAgent.Client()), urlCache, narrationStore)

	apiHandler := server.NewAPIHandler(
		repository.NewGormScanRepository(db.GormDB),
		repository.NewGormChatRepository(db.GormDB),
		artAgent,
		narrator,
		mediaStore,
		cfg,
	)
	return server.Run(cfg, server.NewRouter(apiHandler, server.NewPlayerHandler(cfg)))
}

func openObjectStore(cfg *config.Config) (*storage.ObjectStore, error) {
	store, err := storage.NewObjectStore(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare bucket %s: %w", store.Bucket(), err)
	}
	return store, nil
}
