// Package bootstrap wires the application together: configuration,
// logging, backend selection, and the vector index. Backend failures
// degrade the app instead of aborting startup; only a config error is
// fatal.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"ragchat/internal/config"
	"ragchat/internal/engine"
	"ragchat/internal/log"
	"ragchat/internal/model"
	"ragchat/internal/platform/sqlite"
	"ragchat/internal/repository"
	"ragchat/internal/vectorindex"
)

type App struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *gorm.DB
	Engine *engine.Engine

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	logger := log.New(log.Config{Level: cfg.App.LogLevel, JSON: cfg.App.LogJSON})

	llm := engine.SelectGeneration(ctx, cfg, logger.With("component", "selector"))
	embedder := engine.SelectEmbedding(cfg, logger.With("component", "selector"))

	var db *gorm.DB
	var index *vectorindex.Store
	if embedder != nil {
		db, err = sqlite.New(ctx, cfg.Index.Path)
		if err != nil {
			logger.Error("open vector index failed, running without index", "path", cfg.Index.Path, "error", err)
		} else {
			if err := db.AutoMigrate(&model.ChunkRecord{}, &model.Document{}); err != nil {
				return nil, fmt.Errorf("auto migrate tables failed: %w", err)
			}
			index = vectorindex.New(vectorindex.Options{
				Chunks:    repository.NewChunkRepository(db),
				Documents: repository.NewDocumentRepository(db),
				Embedder:  embedder,
				BatchSize: cfg.Index.BatchSize,
				Logger:    logger.With("component", "vectorindex"),
			})
		}
	}

	opts := engine.Options{
		LLM:      llm,
		Embedder: embedder,
		TopK:     cfg.Index.TopK,
		Logger:   logger.With("component", "engine"),
	}
	// Assign only when non-nil so the interface field stays nil
	// instead of holding a typed-nil pointer.
	if index != nil {
		opts.Index = index
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Engine:    engine.New(opts),
		StartedAt: time.Now(),
	}, nil
}

func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
