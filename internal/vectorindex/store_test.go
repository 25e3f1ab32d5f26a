package vectorindex

import (
	"context"
	"fmt"
	"testing"

	"ragchat/internal/model"
)

type fakeChunkStore struct {
	batches [][]model.ChunkRecord
	records []model.ChunkRecord
	failAt  int // batch index to fail on, -1 to never fail
}

func (f *fakeChunkStore) CreateBatch(chunks []model.ChunkRecord) error {
	if f.failAt >= 0 && len(f.batches) == f.failAt {
		return fmt.Errorf("disk full")
	}
	f.batches = append(f.batches, chunks)
	f.records = append(f.records, chunks...)
	return nil
}

func (f *fakeChunkStore) ListAll() ([]model.ChunkRecord, error) {
	return f.records, nil
}

type fakeDocumentStore struct {
	docs []model.Document
}

func (f *fakeDocumentStore) Create(doc *model.Document) error {
	f.docs = append(f.docs, *doc)
	return nil
}

func (f *fakeDocumentStore) Count() (int64, error) {
	return int64(len(f.docs)), nil
}

// axisEmbedder maps known texts to fixed unit vectors so similarity
// ordering is predictable.
type axisEmbedder struct {
	vectors map[string][]float32
}

func (e *axisEmbedder) Name() string { return "axis" }

func (e *axisEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0, 0, 1}, nil
}

func (e *axisEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

func newTestStore(chunks *fakeChunkStore, docs *fakeDocumentStore, emb *axisEmbedder, batchSize int) *Store {
	return New(Options{
		Chunks:    chunks,
		Documents: docs,
		Embedder:  emb,
		BatchSize: batchSize,
	})
}

func TestAddBatchesChunks(t *testing.T) {
	chunks := &fakeChunkStore{failAt: -1}
	docs := &fakeDocumentStore{}
	store := newTestStore(chunks, docs, &axisEmbedder{}, 50)

	texts := make([]string, 120)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk %d", i)
	}
	if err := store.Add(context.Background(), "big.txt", texts); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if len(chunks.batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(chunks.batches))
	}
	sizes := []int{len(chunks.batches[0]), len(chunks.batches[1]), len(chunks.batches[2])}
	if sizes[0] != 50 || sizes[1] != 50 || sizes[2] != 20 {
		t.Fatalf("unexpected batch sizes %v", sizes)
	}
	if len(docs.docs) != 1 || docs.docs[0].ChunkCount != 120 {
		t.Fatalf("unexpected document registry %+v", docs.docs)
	}
	for _, rec := range chunks.records {
		if rec.ID == "" || rec.DocumentID != docs.docs[0].ID {
			t.Fatalf("chunk record not linked to document: %+v", rec)
		}
		if rec.Embedding == "" {
			t.Fatal("chunk record missing embedding")
		}
	}
}

func TestAddAbortsOnBatchFailure(t *testing.T) {
	chunks := &fakeChunkStore{failAt: 1}
	docs := &fakeDocumentStore{}
	store := newTestStore(chunks, docs, &axisEmbedder{}, 50)

	texts := make([]string, 120)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk %d", i)
	}
	err := store.Add(context.Background(), "big.txt", texts)
	if err == nil {
		t.Fatal("expected error from failing batch")
	}
	// The first batch stays committed.
	if len(chunks.records) != 50 {
		t.Fatalf("expected 50 committed records, got %d", len(chunks.records))
	}
}

func TestAddRejectsEmpty(t *testing.T) {
	store := newTestStore(&fakeChunkStore{failAt: -1}, &fakeDocumentStore{}, &axisEmbedder{}, 50)
	if err := store.Add(context.Background(), "empty.txt", nil); err == nil {
		t.Fatal("expected error for empty chunk list")
	}
}

func TestSearchOrdersBySimilarity(t *testing.T) {
	emb := &axisEmbedder{vectors: map[string][]float32{
		"exact match":   {1, 0, 0},
		"close match":   {0.9, 0.1, 0},
		"unrelated":     {0, 1, 0},
		"what is this?": {1, 0, 0},
	}}
	chunks := &fakeChunkStore{failAt: -1}
	docs := &fakeDocumentStore{}
	store := newTestStore(chunks, docs, emb, 50)

	if err := store.Add(context.Background(), "facts.txt", []string{"unrelated", "close match", "exact match"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	results, err := store.Search(context.Background(), "what is this?", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Content != "exact match" {
		t.Fatalf("expected best match first, got %q", results[0].Content)
	}
	if results[1].Content != "close match" {
		t.Fatalf("expected second best next, got %q", results[1].Content)
	}
	if results[0].Source != "facts.txt" {
		t.Fatalf("expected source facts.txt, got %q", results[0].Source)
	}
}

func TestSearchClampsK(t *testing.T) {
	chunks := &fakeChunkStore{failAt: -1}
	store := newTestStore(chunks, &fakeDocumentStore{}, &axisEmbedder{}, 50)

	if err := store.Add(context.Background(), "one.txt", []string{"only chunk"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	results, err := store.Search(context.Background(), "query", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	store := newTestStore(&fakeChunkStore{failAt: -1}, &fakeDocumentStore{}, &axisEmbedder{}, 50)
	results, err := store.Search(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if results != nil {
		t.Fatalf("expected no results, got %v", results)
	}
}

func TestSearchDefaultsUnknownSource(t *testing.T) {
	chunks := &fakeChunkStore{failAt: -1}
	chunks.records = []model.ChunkRecord{{ID: "x", Content: "orphan chunk"}}
	chunks.records[0].SetEmbedding([]float32{1, 0, 0})
	store := newTestStore(chunks, &fakeDocumentStore{}, &axisEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}, 50)

	results, err := store.Search(context.Background(), "q", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].Source != "Unknown" {
		t.Fatalf("expected Unknown source, got %+v", results)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Fatalf("identical vectors should score ~1, got %v", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Fatalf("orthogonal vectors should score 0, got %v", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Fatalf("mismatched dimensions should score 0, got %v", got)
	}
	if got := cosineSimilarity(nil, nil); got != 0 {
		t.Fatalf("empty vectors should score 0, got %v", got)
	}
}
