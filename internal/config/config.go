package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig      `toml:"app"`
	LLM      LLMConfig      `toml:"llm"`
	Endpoint EndpointConfig `toml:"endpoint"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Ollama   OllamaConfig   `toml:"ollama"`
	Index    IndexConfig    `toml:"index"`
}

type AppConfig struct {
	Name     string `toml:"name"`
	Env      string `toml:"env"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	GinMode  string `toml:"gin_mode"`
	LogLevel string `toml:"log_level"`
	LogJSON  bool   `toml:"log_json"`
}

// LLMConfig configures the hosted OpenAI-compatible API used for both
// chat completions and embeddings; one credential serves both concerns.
type LLMConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// EndpointConfig configures the hosted inference-endpoint fallback
// (HuggingFace-style: POST inputs, read generated_text back).
type EndpointConfig struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
	Model   string `toml:"model"`
}

// PipelineConfig configures the local ONNX causal-LM pipeline. Left
// empty, the pipeline candidate is skipped during backend selection.
type PipelineConfig struct {
	ModelPath   string `toml:"model_path"`
	VocabPath   string `toml:"vocab_path"`
	ONNXLibPath string `toml:"onnx_lib_path"`
	MaxTokens   int    `toml:"max_tokens"`
}

type OllamaConfig struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// IndexConfig configures chunking and the on-disk vector index.
type IndexConfig struct {
	Path         string `toml:"path"`
	ChunkSize    int    `toml:"chunk_size"`
	ChunkOverlap int    `toml:"chunk_overlap"`
	TopK         int    `toml:"top_k"`
	BatchSize    int    `toml:"batch_size"`
}

// Load reads configuration once at startup: defaults, then the TOML
// file (if present), then environment overrides. A .env file in the
// working directory is loaded into the environment first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

// Default returns the built-in defaults without consulting files or
// the environment.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "ragchat",
			Env:      "dev",
			Host:     "0.0.0.0",
			Port:     8000,
			GinMode:  "release",
			LogLevel: "info",
		},
		LLM: LLMConfig{
			BaseURL:        "https://api.openai.com/v1",
			APIKey:         "",
			Model:          "gpt-3.5-turbo",
			EmbeddingModel: "text-embedding-ada-002",
			TimeoutSeconds: 90,
		},
		Endpoint: EndpointConfig{
			BaseURL: "https://api-inference.huggingface.co/models",
			Token:   "",
			Model:   "google/flan-t5-base",
		},
		Pipeline: PipelineConfig{
			MaxTokens: 128,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://127.0.0.1:11434",
			Model:   "llama2",
		},
		Index: IndexConfig{
			Path:         "data/index.db",
			ChunkSize:    1000,
			ChunkOverlap: 200,
			TopK:         3,
			BatchSize:    50,
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)
	cfg.App.LogLevel = getEnv("LOG_LEVEL", cfg.App.LogLevel)
	cfg.App.LogJSON = getEnvAsBool("LOG_JSON", cfg.App.LogJSON)

	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.EmbeddingModel = getEnv("LLM_EMBEDDING_MODEL", cfg.LLM.EmbeddingModel)
	cfg.LLM.TimeoutSeconds = getEnvAsInt("LLM_TIMEOUT_SECONDS", cfg.LLM.TimeoutSeconds)

	cfg.Endpoint.BaseURL = getEnv("ENDPOINT_BASE_URL", cfg.Endpoint.BaseURL)
	cfg.Endpoint.Token = getEnv("ENDPOINT_TOKEN", cfg.Endpoint.Token)
	cfg.Endpoint.Model = getEnv("ENDPOINT_MODEL", cfg.Endpoint.Model)

	cfg.Pipeline.ModelPath = getEnv("PIPELINE_MODEL_PATH", cfg.Pipeline.ModelPath)
	cfg.Pipeline.VocabPath = getEnv("PIPELINE_VOCAB_PATH", cfg.Pipeline.VocabPath)
	cfg.Pipeline.ONNXLibPath = getEnv("PIPELINE_ONNX_LIB", cfg.Pipeline.ONNXLibPath)
	cfg.Pipeline.MaxTokens = getEnvAsInt("PIPELINE_MAX_TOKENS", cfg.Pipeline.MaxTokens)

	cfg.Ollama.BaseURL = getEnv("OLLAMA_BASE_URL", cfg.Ollama.BaseURL)
	cfg.Ollama.Model = getEnv("OLLAMA_MODEL", cfg.Ollama.Model)

	cfg.Index.Path = getEnv("INDEX_PATH", cfg.Index.Path)
	cfg.Index.ChunkSize = getEnvAsInt("INDEX_CHUNK_SIZE", cfg.Index.ChunkSize)
	cfg.Index.ChunkOverlap = getEnvAsInt("INDEX_CHUNK_OVERLAP", cfg.Index.ChunkOverlap)
	cfg.Index.TopK = getEnvAsInt("INDEX_TOP_K", cfg.Index.TopK)
	cfg.Index.BatchSize = getEnvAsInt("INDEX_BATCH_SIZE", cfg.Index.BatchSize)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
