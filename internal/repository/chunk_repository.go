package repository

import (
	"fmt"

	"gorm.io/gorm"

	"ragchat/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) CreateBatch(chunks []model.ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.Create(&chunks).Error; err != nil {
		return fmt.Errorf("create chunk batch failed: %w", err)
	}
	return nil
}

// ListAll returns every stored chunk. Retrieval scans the full index,
// so there is no pagination.
func (r *ChunkRepository) ListAll() ([]model.ChunkRecord, error) {
	var chunks []model.ChunkRecord
	if err := r.db.Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) DeleteByDocumentID(documentID string) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.ChunkRecord{}).Error; err != nil {
		return fmt.Errorf("delete chunks by document failed: %w", err)
	}
	return nil
}
