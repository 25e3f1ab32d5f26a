package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"ragchat/internal/vectorindex"
)

// fakeLLM scripts the outcomes of both invocation shapes.
type fakeLLM struct {
	chatStyle bool

	chatReply string
	chatErr   error
	genReply  string
	genErr    error

	chatCalls  int
	genCalls   int
	lastPrompt string
}

func (f *fakeLLM) Name() string    { return "fake" }
func (f *fakeLLM) ChatStyle() bool { return f.chatStyle }

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.genCalls++
	f.lastPrompt = prompt
	return f.genReply, f.genErr
}

func (f *fakeLLM) GenerateChat(ctx context.Context, system, user string) (string, error) {
	f.chatCalls++
	f.lastPrompt = user
	return f.chatReply, f.chatErr
}

// fakeRetriever serves a fixed result set.
type fakeRetriever struct {
	results   []vectorindex.Result
	searchErr error
	addErr    error
	added     [][]string
	count     int64
}

func (f *fakeRetriever) Add(ctx context.Context, name string, texts []string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, texts)
	f.count++
	return nil
}

func (f *fakeRetriever) Search(ctx context.Context, query string, k int) ([]vectorindex.Result, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if k < len(f.results) {
		return f.results[:k], nil
	}
	return f.results, nil
}

func (f *fakeRetriever) Documents(ctx context.Context) (int64, error) {
	return f.count, nil
}

func TestGenerateWithoutBackend(t *testing.T) {
	e := New(Options{})
	text, sources := e.Generate(context.Background(), "hello", "", true)
	if !strings.Contains(text, "configure an LLM") {
		t.Fatalf("expected guidance message, got %q", text)
	}
	if sources != nil {
		t.Fatalf("expected nil sources, got %v", sources)
	}
}

func TestGenerateWithContext(t *testing.T) {
	llm := &fakeLLM{chatStyle: true, chatReply: "Paris."}
	idx := &fakeRetriever{results: []vectorindex.Result{
		{Content: "Paris is the capital of France.", Source: "geo.txt"},
	}}
	e := New(Options{LLM: llm, Index: idx, TopK: 3})

	text, sources := e.Generate(context.Background(), "What is the capital of France?", "conv-1", true)
	if text != "Paris." {
		t.Fatalf("unexpected response %q", text)
	}
	if len(sources) != 1 || sources[0] != "geo.txt" {
		t.Fatalf("unexpected sources %v", sources)
	}
	if !strings.Contains(llm.lastPrompt, "Based on the following context") {
		t.Fatalf("prompt missing context block: %q", llm.lastPrompt)
	}
	if !strings.Contains(llm.lastPrompt, "Paris is the capital of France.") {
		t.Fatalf("prompt missing retrieved chunk: %q", llm.lastPrompt)
	}
	if !strings.Contains(llm.lastPrompt, "Question: What is the capital of France?") {
		t.Fatalf("prompt missing question: %q", llm.lastPrompt)
	}

	hist := e.History("conv-1")
	if len(hist) != 1 || hist[0].Response != "Paris." {
		t.Fatalf("exchange not stored: %+v", hist)
	}
}

func TestGenerateWithoutRAG(t *testing.T) {
	llm := &fakeLLM{chatStyle: true, chatReply: "An answer."}
	idx := &fakeRetriever{results: []vectorindex.Result{{Content: "chunk", Source: "s"}}}
	e := New(Options{LLM: llm, Index: idx})

	_, sources := e.Generate(context.Background(), "question", "", false)
	if sources != nil {
		t.Fatalf("useRAG=false must skip retrieval, got sources %v", sources)
	}
	if !strings.HasPrefix(llm.lastPrompt, "Answer the following question:") {
		t.Fatalf("expected bare prompt, got %q", llm.lastPrompt)
	}
}

func TestGenerateSearchFailureProceeds(t *testing.T) {
	llm := &fakeLLM{chatStyle: true, chatReply: "still answered"}
	idx := &fakeRetriever{searchErr: errors.New("index corrupt")}
	e := New(Options{LLM: llm, Index: idx})

	text, sources := e.Generate(context.Background(), "question", "", true)
	if text != "still answered" {
		t.Fatalf("unexpected response %q", text)
	}
	if sources != nil {
		t.Fatalf("expected nil sources after search failure, got %v", sources)
	}
	if !strings.HasPrefix(llm.lastPrompt, "Answer the following question:") {
		t.Fatalf("expected bare prompt after failed retrieval, got %q", llm.lastPrompt)
	}
}

func TestGenerateQuotaError(t *testing.T) {
	for _, errText := range []string{
		"llm response status 429: rate limited",
		"llm response status 400: insufficient_quota",
		"You exceeded your current QUOTA",
	} {
		llm := &fakeLLM{chatStyle: true, chatErr: errors.New(errText)}
		idx := &fakeRetriever{results: []vectorindex.Result{{Content: "c", Source: "doc.pdf"}}}
		e := New(Options{LLM: llm, Index: idx})

		text, sources := e.Generate(context.Background(), "q", "conv", true)
		if !strings.Contains(text, "quota") {
			t.Fatalf("expected quota message for %q, got %q", errText, text)
		}
		if len(sources) != 1 || sources[0] != "doc.pdf" {
			t.Fatalf("sources must survive quota failure, got %v", sources)
		}
		if llm.genCalls != 0 {
			t.Fatal("quota errors must not trigger the fallback shape")
		}
		if e.History("conv") != nil {
			t.Fatal("quota path must not store an exchange")
		}
	}
}

func TestGenerateFallbackShape(t *testing.T) {
	llm := &fakeLLM{
		chatStyle: true,
		chatErr:   errors.New("bad request shape"),
		genReply:  "fallback answer",
	}
	e := New(Options{LLM: llm})

	text, _ := e.Generate(context.Background(), "q", "conv", false)
	if text != "fallback answer" {
		t.Fatalf("unexpected response %q", text)
	}
	if llm.chatCalls != 1 || llm.genCalls != 1 {
		t.Fatalf("expected one call per shape, got chat=%d gen=%d", llm.chatCalls, llm.genCalls)
	}
	if len(e.History("conv")) != 1 {
		t.Fatal("successful fallback must store the exchange")
	}
}

func TestGenerateFallbackReversedForStringBackends(t *testing.T) {
	llm := &fakeLLM{
		chatStyle: false,
		genErr:    errors.New("server error"),
		chatReply: "chat shape answer",
	}
	e := New(Options{LLM: llm})

	text, _ := e.Generate(context.Background(), "q", "", false)
	if text != "chat shape answer" {
		t.Fatalf("unexpected response %q", text)
	}
	if llm.genCalls != 1 || llm.chatCalls != 1 {
		t.Fatalf("expected gen then chat, got gen=%d chat=%d", llm.genCalls, llm.chatCalls)
	}
}

func TestGenerateDoubleFailure(t *testing.T) {
	llm := &fakeLLM{
		chatStyle: true,
		chatErr:   errors.New("primary down"),
		genErr:    errors.New("fallback down"),
	}
	idx := &fakeRetriever{results: []vectorindex.Result{{Content: "c", Source: "s.txt"}}}
	e := New(Options{LLM: llm, Index: idx})

	text, sources := e.Generate(context.Background(), "q", "conv", true)
	if !strings.Contains(text, "Error generating response: fallback down") {
		t.Fatalf("expected fallback error in message, got %q", text)
	}
	if !strings.Contains(text, "check your API key and quota") {
		t.Fatalf("expected guidance suffix, got %q", text)
	}
	if len(sources) != 1 {
		t.Fatalf("sources must survive double failure, got %v", sources)
	}
	if e.History("conv") != nil {
		t.Fatal("double-failure path must not store an exchange")
	}
}

func TestGenerateTrimsResponse(t *testing.T) {
	llm := &fakeLLM{chatStyle: true, chatReply: "  padded  \n"}
	e := New(Options{LLM: llm})
	text, _ := e.Generate(context.Background(), "q", "", false)
	if text != "padded" {
		t.Fatalf("expected trimmed response, got %q", text)
	}
}

func TestIngestAndCount(t *testing.T) {
	idx := &fakeRetriever{}
	e := New(Options{Index: idx})

	if err := e.Ingest(context.Background(), "doc.txt", []string{"a", "b"}); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if n := e.DocumentCount(context.Background()); n != 1 {
		t.Fatalf("expected 1 document, got %d", n)
	}

	empty := New(Options{})
	if err := empty.Ingest(context.Background(), "doc.txt", []string{"a"}); err == nil {
		t.Fatal("expected error when index unbound")
	}
	if n := empty.DocumentCount(context.Background()); n != 0 {
		t.Fatalf("unbound index should count 0, got %d", n)
	}
}

func TestReadyFlags(t *testing.T) {
	full := New(Options{LLM: &fakeLLM{}, Embedder: stubEmbedder{}, Index: &fakeRetriever{}})
	if !full.Ready() || !full.LLMBound() || !full.EmbeddingsBound() || !full.IndexBound() {
		t.Fatal("fully bound engine should report ready")
	}
	partial := New(Options{LLM: &fakeLLM{}})
	if partial.Ready() {
		t.Fatal("engine without index must not report ready")
	}
	if !partial.LLMBound() || partial.EmbeddingsBound() || partial.IndexBound() {
		t.Fatal("bound flags should reflect options")
	}
}

func TestGenerateTopKClamp(t *testing.T) {
	results := make([]vectorindex.Result, 5)
	for i := range results {
		results[i] = vectorindex.Result{Content: fmt.Sprintf("chunk %d", i), Source: "s"}
	}
	llm := &fakeLLM{chatStyle: true, chatReply: "ok"}
	idx := &fakeRetriever{results: results}
	e := New(Options{LLM: llm, Index: idx, TopK: 3})

	_, sources := e.Generate(context.Background(), "q", "", true)
	if len(sources) != 3 {
		t.Fatalf("expected top 3 sources, got %d", len(sources))
	}
}

type stubEmbedder struct{}

func (stubEmbedder) Name() string { return "stub" }
func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1}, nil
}
func (stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return [][]float32{{1}}, nil
}
