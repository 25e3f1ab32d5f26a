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

// EndpointConfig holds settings for a hosted inference endpoint that
// accepts a raw prompt and returns generated text (HuggingFace-style).
type EndpointConfig struct {
	BaseURL string
	Token   string
	Model   string
	Timeout time.Duration
}

// EndpointClient calls a hosted inference endpoint. Its model family
// expects a raw prompt string, not structured messages.
type EndpointClient struct {
	baseURL    string
	token      string
	model      string
	httpClient *http.Client
}

func NewEndpointClient(cfg EndpointConfig) *EndpointClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &EndpointClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *EndpointClient) Name() string { return "hosted-endpoint" }

func (c *EndpointClient) ChatStyle() bool { return false }

func (c *EndpointClient) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"inputs": prompt,
		"parameters": map[string]interface{}{
			"max_new_tokens":   512,
			"temperature":      0.7,
			"return_full_text": false,
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal endpoint request failed: %w", err)
	}

	url := c.baseURL + "/" + c.model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("build endpoint request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("endpoint request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read endpoint response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("endpoint response status %d: %s", resp.StatusCode, string(raw))
	}

	var generations []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &generations); err == nil && len(generations) > 0 {
		return generations[0].GeneratedText, nil
	}

	var failure struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &failure); err == nil && failure.Error != "" {
		return "", fmt.Errorf("endpoint error: %s", failure.Error)
	}
	return "", fmt.Errorf("unexpected endpoint response: %s", string(raw))
}

// GenerateChat flattens the structured messages into a single prompt;
// the endpoint protocol has no message shape of its own.
func (c *EndpointClient) GenerateChat(ctx context.Context, system, user string) (string, error) {
	return c.Generate(ctx, system+"\n\n"+user)
}
