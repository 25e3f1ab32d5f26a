package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ragchat/internal/ai"
	"ragchat/internal/config"
)

// SelectGeneration walks the generation candidates in priority order
// and binds the first one that constructs. Unavailable candidates
// (missing credential, missing model files) are skipped quietly;
// construction failures log a warning and fall through. Returns nil
// when every candidate is exhausted.
func SelectGeneration(ctx context.Context, cfg *config.Config, logger *slog.Logger) ai.GenerationBackend {
	timeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second

	candidates := []struct {
		name  string
		build func() (ai.GenerationBackend, error)
	}{
		{
			name: "hosted-chat",
			build: func() (ai.GenerationBackend, error) {
				key := strings.TrimSpace(cfg.LLM.APIKey)
				if key == "" || strings.HasPrefix(key, "your_") {
					return nil, fmt.Errorf("%w: no api key configured", ai.ErrUnavailable)
				}
				return ai.NewChatClient(ai.ChatConfig{
					BaseURL: cfg.LLM.BaseURL,
					APIKey:  key,
					Model:   cfg.LLM.Model,
					Timeout: timeout,
				}), nil
			},
		},
		{
			name: "hosted-endpoint",
			build: func() (ai.GenerationBackend, error) {
				token := strings.TrimSpace(cfg.Endpoint.Token)
				if token == "" {
					return nil, fmt.Errorf("%w: no endpoint token configured", ai.ErrUnavailable)
				}
				return ai.NewEndpointClient(ai.EndpointConfig{
					BaseURL: cfg.Endpoint.BaseURL,
					Token:   token,
					Model:   cfg.Endpoint.Model,
					Timeout: timeout,
				}), nil
			},
		},
		{
			name: "local-pipeline",
			build: func() (ai.GenerationBackend, error) {
				if cfg.Pipeline.ModelPath == "" || cfg.Pipeline.VocabPath == "" {
					return nil, fmt.Errorf("%w: no local model configured", ai.ErrUnavailable)
				}
				return ai.NewPipeline(ai.PipelineConfig{
					ModelPath: cfg.Pipeline.ModelPath,
					VocabPath: cfg.Pipeline.VocabPath,
					LibPath:   cfg.Pipeline.ONNXLibPath,
					MaxTokens: cfg.Pipeline.MaxTokens,
				})
			},
		},
		{
			name: "ollama",
			build: func() (ai.GenerationBackend, error) {
				client := ai.NewOllamaClient(ai.OllamaConfig{
					BaseURL: cfg.Ollama.BaseURL,
					Model:   cfg.Ollama.Model,
					Timeout: timeout,
				})
				pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
				defer cancel()
				if err := client.Ping(pingCtx); err != nil {
					return nil, err
				}
				return client, nil
			},
		},
	}

	for _, c := range candidates {
		backend, err := c.build()
		if err != nil {
			if errors.Is(err, ai.ErrUnavailable) {
				logger.Info("generation backend unavailable", "candidate", c.name, "reason", err)
			} else {
				logger.Warn("generation backend failed to bind", "candidate", c.name, "error", err)
			}
			continue
		}
		logger.Info("generation backend bound", "backend", backend.Name())
		return backend
	}

	logger.Warn("no generation backend available, running degraded")
	return nil
}

// SelectEmbedding binds the first usable embedding backend. The local
// hashed embedder needs no credentials or network, so the result is
// never nil.
func SelectEmbedding(cfg *config.Config, logger *slog.Logger) ai.EmbeddingBackend {
	key := strings.TrimSpace(cfg.LLM.APIKey)
	switch {
	case key == "":
		logger.Info("embedding backend unavailable", "candidate", "hosted-embeddings", "reason", "no api key configured")
	case strings.HasPrefix(key, "your_"):
		logger.Warn("embedding backend failed to bind", "candidate", "hosted-embeddings", "error", "api key is a placeholder value")
	default:
		backend := ai.NewEmbeddingClient(ai.EmbeddingConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  key,
			Model:   cfg.LLM.EmbeddingModel,
			Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		})
		logger.Info("embedding backend bound", "backend", backend.Name())
		return backend
	}

	backend := ai.NewHashEmbedder()
	logger.Info("embedding backend bound", "backend", backend.Name())
	return backend
}
