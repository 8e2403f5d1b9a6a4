package domain

import (
	"time"

	"gorm.io/datatypes"
)

// DocumentStatus tracks a document through the processing pipeline.
// The progression is uploading -> processing -> processed -> indexed;
// error is terminal and reachable from any prior state.
type DocumentStatus string

const (
	StatusUploading  DocumentStatus = "uploading"
	StatusProcessing DocumentStatus = "processing"
	StatusProcessed  DocumentStatus = "processed"
	StatusIndexed    DocumentStatus = "indexed"
	StatusError      DocumentStatus = "error"
)

// Document is an uploaded file bound to an ephemeral session.
type Document struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	Filename string `gorm:"size:255;not null" json:"filename"`
	FilePath string `gorm:"size:500;not null" json:"-"`
	FileSize int64  `json:"file_size"`
	MimeType string `gorm:"size:100" json:"mime_type"`

	// Session binding. The session id is an opaque client-generated
	// string, not a credential; expiry gates all visibility.
	SessionID        string    `gorm:"size:64;index;not null" json:"session_id"`
	SessionExpiresAt time.Time `gorm:"not null" json:"session_expires_at"`

	UploadedAt  time.Time  `json:"uploaded_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	ExtractedText string            `gorm:"type:text" json:"extracted_text,omitempty"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty"`

	Status         DocumentStatus    `gorm:"size:50;default:'uploading'" json:"status"`
	OCRConfidence  datatypes.JSONMap `json:"ocr_confidence,omitempty"`
	ProcessingTime int               `json:"processing_time,omitempty"`

	// Soft-delete flag; documents are never hard-deleted from the registry.
	IsActive bool `gorm:"default:true" json:"-"`
}

func (Document) TableName() string { return "documents" }

// Eligible reports whether the document may be returned by retrieval,
// search and list operations at the given instant.
func (d *Document) Eligible(now time.Time) bool {
	return d.IsActive && d.Status == StatusIndexed && now.Before(d.SessionExpiresAt)
}

// DocumentChunk is one bounded slice of a document's extracted text.
// Its id doubles as the vector id in the index.
type DocumentChunk struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	DocumentID string `gorm:"size:36;index;not null" json:"document_id"`

	ChunkText  string `gorm:"type:text;not null" json:"chunk_text"`
	ChunkIndex int    `gorm:"not null" json:"chunk_index"`

	PageNumber *int              `json:"page_number,omitempty"`
	BBox       datatypes.JSONMap `json:"bbox,omitempty"`

	VectorID  string    `gorm:"size:100" json:"vector_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (DocumentChunk) TableName() string { return "document_chunks" }

// ChunkPayload is the denormalized copy of chunk fields stored alongside
// each vector so the index can filter and return text without a second
// lookup. The chunk store remains the source of truth.
type ChunkPayload struct {
	DocumentID string         `json:"document_id"`
	ChunkText  string         `json:"chunk_text"`
	ChunkIndex int            `json:"chunk_index"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// VectorRecord is what gets upserted into the vector index.
type VectorRecord struct {
	ID      string
	Vector  []float64
	Payload ChunkPayload
}

// SearchHit is a scored match returned by the vector index.
type SearchHit struct {
	ChunkID string
	Score   float64
	Payload ChunkPayload
}

// Passage is a retrieved context fragment handed to answer synthesis.
type Passage struct {
	DocumentID string  `json:"document_id"`
	ChunkText  string  `json:"chunk_text"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// TextBlock is one recognized region from the text extractor.
type TextBlock struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	Region     [][]float64 `json:"region,omitempty"`
}

// Extraction is the raw output of a text extractor.
type Extraction struct {
	Text   string
	Blocks []TextBlock
}
