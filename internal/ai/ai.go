// Package ai holds the embedding and generation backend clients.
// Exactly one backend of each kind is bound at startup; clients are
// stateless after construction and safe for concurrent use.
package ai

import (
	"context"
	"errors"
)

// ErrUnavailable marks a backend candidate that cannot be attempted
// at all (missing credential, missing local model). The selector
// skips such candidates with an info-level log instead of a warning.
var ErrUnavailable = errors.New("backend unavailable")

// ChatMessage is one turn in an OpenAI-style message list.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationBackend maps a prompt to generated text. Every backend
// implements both invocation shapes; ChatStyle reports which one its
// model family expects, and the other serves as the fallback path.
type GenerationBackend interface {
	Name() string
	ChatStyle() bool
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateChat(ctx context.Context, system, user string) (string, error)
}

// EmbeddingBackend maps text to fixed-dimension vectors.
type EmbeddingBackend interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
