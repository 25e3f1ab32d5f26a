package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaConfig holds settings for a locally running Ollama service.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OllamaClient talks to a local Ollama daemon over its native HTTP API.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &OllamaClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *OllamaClient) Name() string { return "ollama" }

func (c *OllamaClient) ChatStyle() bool { return false }

// Ping checks that the Ollama service is reachable. The daemon answers
// GET /api/tags with its installed model list when it is up.
func (c *OllamaClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("build ollama ping request failed: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("ollama ping status %d", resp.StatusCode)
	}
	return nil
}

func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
	}
	raw, err := c.post(ctx, "/api/generate", reqBody)
	if err != nil {
		return "", err
	}
	var parsed struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse ollama response failed: %w", err)
	}
	return parsed.Response, nil
}

func (c *OllamaClient) GenerateChat(ctx context.Context, system, user string) (string, error) {
	reqBody := map[string]interface{}{
		"model": c.model,
		"messages": []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		"stream": false,
	}
	raw, err := c.post(ctx, "/api/chat", reqBody)
	if err != nil {
		return "", err
	}
	var parsed struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse ollama chat response failed: %w", err)
	}
	return parsed.Message.Content, nil
}

func (c *OllamaClient) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build ollama request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ollama response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ollama response status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
