// Package engine orchestrates retrieval-augmented generation: it pulls
// context from the vector index, builds the prompt, invokes the bound
// generation backend, and absorbs backend failures into user-facing
// response text.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ragchat/internal/ai"
	"ragchat/internal/log"
	"ragchat/internal/vectorindex"
)

const systemPrompt = "You are a helpful assistant."

const notConfiguredMessage = "Please configure an LLM (OpenAI or Ollama) for full RAG functionality. " +
	"Set an API key or start a local Ollama service, then restart the backend server."

const quotaMessage = "I'm sorry, but the API quota has been exceeded. " +
	"Please check your account billing and quota settings before retrying."

// Retriever is the slice of the vector index the engine needs.
type Retriever interface {
	Add(ctx context.Context, name string, texts []string) error
	Search(ctx context.Context, query string, k int) ([]vectorindex.Result, error)
	Documents(ctx context.Context) (int64, error)
}

// Engine holds the backends bound at startup. Any of llm, embedder,
// and index may be nil; Generate degrades instead of failing.
type Engine struct {
	llm      ai.GenerationBackend
	embedder ai.EmbeddingBackend
	index    Retriever
	memory   *Memory
	topK     int
	logger   *slog.Logger
}

type Options struct {
	LLM      ai.GenerationBackend
	Embedder ai.EmbeddingBackend
	Index    Retriever
	TopK     int
	Logger   *slog.Logger
}

func New(opts Options) *Engine {
	topK := opts.TopK
	if topK <= 0 {
		topK = 3
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Engine{
		llm:      opts.LLM,
		embedder: opts.Embedder,
		index:    opts.Index,
		memory:   NewMemory(),
		topK:     topK,
		logger:   logger,
	}
}

// Ready reports whether the full RAG pipeline is usable.
func (e *Engine) Ready() bool {
	return e.llm != nil && e.embedder != nil && e.index != nil
}

func (e *Engine) LLMBound() bool        { return e.llm != nil }
func (e *Engine) EmbeddingsBound() bool { return e.embedder != nil }
func (e *Engine) IndexBound() bool      { return e.index != nil }

// Ingest chunks a named document into the index.
func (e *Engine) Ingest(ctx context.Context, name string, chunks []string) error {
	if e.index == nil {
		return fmt.Errorf("vector index not available")
	}
	return e.index.Add(ctx, name, chunks)
}

// DocumentCount reports how many documents the index holds.
func (e *Engine) DocumentCount(ctx context.Context) int64 {
	if e.index == nil {
		return 0
	}
	n, err := e.index.Documents(ctx)
	if err != nil {
		e.logger.Warn("document count failed", "error", err)
		return 0
	}
	return n
}

// History returns the stored exchanges for a conversation.
func (e *Engine) History(conversationID string) []Exchange {
	return e.memory.History(conversationID)
}

// Generate answers the query. It never returns an error: every failure
// mode maps to response text, so the chat endpoint always has something
// to show. Sources is nil when no retrieval happened.
func (e *Engine) Generate(ctx context.Context, query, conversationID string, useRAG bool) (string, []string) {
	if e.llm == nil {
		return notConfiguredMessage, nil
	}

	var chunks []string
	var sources []string
	if useRAG && e.index != nil {
		results, err := e.index.Search(ctx, query, e.topK)
		if err != nil {
			e.logger.Warn("vector search failed", "error", err)
		}
		for _, r := range results {
			chunks = append(chunks, r.Content)
			sources = append(sources, r.Source)
		}
	}

	prompt := buildPrompt(query, chunks)

	response, err := e.invoke(ctx, prompt)
	if err != nil {
		if isQuotaError(err) {
			e.logger.Error("llm quota exceeded", "backend", e.llm.Name(), "error", err)
			return quotaMessage, sources
		}

		e.logger.Warn("primary invocation failed, trying fallback", "backend", e.llm.Name(), "error", err)
		response, err = e.invokeFallback(ctx, prompt)
		if err != nil {
			e.logger.Error("fallback invocation failed", "backend", e.llm.Name(), "error", err)
			return fmt.Sprintf("Error generating response: %v. Please check your API key and quota.", err), sources
		}
	}

	response = strings.TrimSpace(response)
	e.memory.Append(conversationID, query, response)
	return response, sources
}

// invoke uses the shape the backend's model family expects.
func (e *Engine) invoke(ctx context.Context, prompt string) (string, error) {
	if e.llm.ChatStyle() {
		return e.llm.GenerateChat(ctx, systemPrompt, prompt)
	}
	return e.llm.Generate(ctx, prompt)
}

// invokeFallback uses the opposite shape, for backends whose primary
// protocol is misconfigured or rejected by the server.
func (e *Engine) invokeFallback(ctx context.Context, prompt string) (string, error) {
	if e.llm.ChatStyle() {
		return e.llm.Generate(ctx, prompt)
	}
	return e.llm.GenerateChat(ctx, systemPrompt, prompt)
}

func buildPrompt(query string, chunks []string) string {
	if len(chunks) == 0 {
		return "Answer the following question: " + query
	}
	context := strings.Join(chunks, "\n\n")
	return fmt.Sprintf("Based on the following context, answer the question. "+
		"If the answer is not in the context, say so.\n\nContext:\n%s\n\nQuestion: %s\n\nAnswer:",
		context, query)
}

// isQuotaError matches rate-limit and quota failures by error text;
// backend clients embed the HTTP status and response body in their
// errors. "quota" also covers insufficient_quota.
func isQuotaError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota")
}
