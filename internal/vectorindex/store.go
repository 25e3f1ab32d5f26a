// Package vectorindex persists chunk embeddings and answers cosine
// similarity searches over them.
package vectorindex

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/google/uuid"

	"ragchat/internal/ai"
	"ragchat/internal/log"
	"ragchat/internal/model"
)

const defaultBatchSize = 50

// Result is one retrieved chunk with its originating file name.
type Result struct {
	Content string
	Source  string
}

type chunkStore interface {
	CreateBatch(chunks []model.ChunkRecord) error
	ListAll() ([]model.ChunkRecord, error)
}

type documentStore interface {
	Create(doc *model.Document) error
	Count() (int64, error)
}

// Store embeds chunks on ingest and scans the persisted index on
// search. Similarity is brute-force cosine over all stored vectors.
type Store struct {
	chunks    chunkStore
	documents documentStore
	embedder  ai.EmbeddingBackend
	batchSize int
	logger    *slog.Logger
}

type Options struct {
	Chunks    chunkStore
	Documents documentStore
	Embedder  ai.EmbeddingBackend
	BatchSize int
	Logger    *slog.Logger
}

func New(opts Options) *Store {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		chunks:    opts.Chunks,
		documents: opts.Documents,
		embedder:  opts.Embedder,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Add embeds the chunks in batches and persists them under a new
// document record. A failed batch aborts ingestion; batches already
// written stay in the index.
func (s *Store) Add(ctx context.Context, name string, texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("no chunks to index")
	}

	doc := &model.Document{
		ID:         uuid.NewString(),
		Name:       name,
		ChunkCount: len(texts),
	}
	if err := s.documents.Create(doc); err != nil {
		return err
	}

	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vectors, err := s.embedder.EmbedBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("embed batch failed: %w", err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(batch), len(vectors))
		}

		records := make([]model.ChunkRecord, len(batch))
		for i, text := range batch {
			records[i] = model.ChunkRecord{
				ID:         uuid.NewString(),
				DocumentID: doc.ID,
				Source:     name,
				Content:    text,
			}
			records[i].SetEmbedding(vectors[i])
		}
		if err := s.chunks.CreateBatch(records); err != nil {
			return err
		}
		s.logger.Debug("indexed chunk batch", "document", name, "from", start, "to", end)
	}

	s.logger.Info("document indexed", "document", name, "chunks", len(texts))
	return nil
}

// Search embeds the query and returns the k most similar chunks in
// descending similarity order.
func (s *Store) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}

	records, err := s.chunks.ListAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, 0, len(records))
	for i := range records {
		ranked = append(ranked, scored{i, cosineSimilarity(queryVec, records[i].EmbeddingVector())})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if k > len(ranked) {
		k = len(ranked)
	}
	results := make([]Result, 0, k)
	for _, r := range ranked[:k] {
		source := records[r.idx].Source
		if source == "" {
			source = "Unknown"
		}
		results = append(results, Result{
			Content: records[r.idx].Content,
			Source:  source,
		})
	}
	return results, nil
}

// Documents reports how many documents have been ingested.
func (s *Store) Documents(ctx context.Context) (int64, error) {
	return s.documents.Count()
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
