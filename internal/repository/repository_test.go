package repository

import (
	"context"
	"path/filepath"
	"testing"

	"ragchat/internal/model"
	"ragchat/internal/platform/sqlite"
)

func openTestDB(t *testing.T) (*ChunkRepository, *DocumentRepository) {
	t.Helper()
	db, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&model.ChunkRecord{}, &model.Document{}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return NewChunkRepository(db), NewDocumentRepository(db)
}

func TestChunkRepositoryRoundTrip(t *testing.T) {
	chunks, docs := openTestDB(t)

	doc := &model.Document{ID: "doc-1", Name: "notes.txt", ChunkCount: 2}
	if err := docs.Create(doc); err != nil {
		t.Fatalf("create document failed: %v", err)
	}

	records := []model.ChunkRecord{
		{ID: "c-1", DocumentID: "doc-1", Source: "notes.txt", Content: "first"},
		{ID: "c-2", DocumentID: "doc-1", Source: "notes.txt", Content: "second"},
	}
	records[0].SetEmbedding([]float32{0.5, 0.25})
	records[1].SetEmbedding([]float32{1, 0})

	if err := chunks.CreateBatch(records); err != nil {
		t.Fatalf("create batch failed: %v", err)
	}

	all, err := chunks.ListAll()
	if err != nil {
		t.Fatalf("list all failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(all))
	}
	byID := map[string]model.ChunkRecord{}
	for _, c := range all {
		byID[c.ID] = c
	}
	rec := byID["c-1"]
	vec := rec.EmbeddingVector()
	if len(vec) != 2 || vec[0] != 0.5 || vec[1] != 0.25 {
		t.Fatalf("embedding did not survive round trip: %v", vec)
	}
}

func TestChunkRepositoryEmptyBatch(t *testing.T) {
	chunks, _ := openTestDB(t)
	if err := chunks.CreateBatch(nil); err != nil {
		t.Fatalf("empty batch should be a no-op: %v", err)
	}
	all, err := chunks.ListAll()
	if err != nil {
		t.Fatalf("list all failed: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty index, got %d chunks", len(all))
	}
}

func TestDocumentRepositoryCount(t *testing.T) {
	_, docs := openTestDB(t)

	n, err := docs.Count()
	if err != nil || n != 0 {
		t.Fatalf("expected empty registry, got %d, %v", n, err)
	}

	for _, name := range []string{"a.pdf", "b.docx"} {
		if err := docs.Create(&model.Document{ID: name, Name: name, ChunkCount: 1}); err != nil {
			t.Fatalf("create document failed: %v", err)
		}
	}
	n, err = docs.Count()
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 documents, got %d", n)
	}
}

func TestChunkRepositoryDeleteByDocument(t *testing.T) {
	chunks, _ := openTestDB(t)

	records := []model.ChunkRecord{
		{ID: "c-1", DocumentID: "doc-1", Content: "keep"},
		{ID: "c-2", DocumentID: "doc-2", Content: "drop"},
	}
	if err := chunks.CreateBatch(records); err != nil {
		t.Fatalf("create batch failed: %v", err)
	}
	if err := chunks.DeleteByDocumentID("doc-2"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	all, err := chunks.ListAll()
	if err != nil {
		t.Fatalf("list all failed: %v", err)
	}
	if len(all) != 1 || all[0].DocumentID != "doc-1" {
		t.Fatalf("unexpected remaining chunks: %+v", all)
	}
}
