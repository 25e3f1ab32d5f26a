package model

import "time"

// Document registers an ingested source file. Chunks reference it by ID.
type Document struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Name       string    `gorm:"size:256;not null" json:"name"`
	ChunkCount int       `gorm:"not null" json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}
