package domain

import (
	"context"
	"io"
	"time"
)

// Embedder converts text into fixed-dimension vectors. The same embedder
// must be used at index time and query time; mixing embedding spaces
// silently corrupts ranking.
type Embedder interface {
	Name() string
	// Dimension is 0 for remote embedders until the first call.
	Dimension() int
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
}

// IndexFilter restricts a vector search to one pinned document or to a
// set of session-visible document ids. Zero value means no filter.
type IndexFilter struct {
	DocumentID  string
	DocumentIDs []string
}

// VectorIndex is the ANN index capability: batched upsert, filtered
// similarity search, delete-by-document and id enumeration for
// reconciliation.
type VectorIndex interface {
	Ensure(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, records []VectorRecord) error
	Search(ctx context.Context, vector []float64, limit int, scoreThreshold float64, filter IndexFilter) ([]SearchHit, error)
	DeleteDocument(ctx context.Context, documentID string) error
	DocumentIDs(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// Extractor turns a stored file into text plus per-region confidence.
// It may return empty text without erroring.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, path string) (Extraction, error)
}

// Completer is the text-completion capability behind answer synthesis.
type Completer interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// ListOptions narrows a registry listing.
type ListOptions struct {
	SessionID string
	Status    DocumentStatus
	Limit     int
	Offset    int
}

// DocumentStore is the durable document registry.
type DocumentStore interface {
	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	// List returns session-visible documents plus the total count before
	// pagination. Expiry and the active flag are applied live.
	List(ctx context.Context, opts ListOptions) ([]Document, int64, error)
	// Visible returns the documents eligible for retrieval in the session
	// at the given instant: active, indexed and unexpired.
	Visible(ctx context.Context, sessionID string, now time.Time) ([]Document, error)
	SetStatus(ctx context.Context, id string, status DocumentStatus) error
	// MarkProcessed records the extraction results and moves the document
	// to the processed status.
	MarkProcessed(ctx context.Context, id string, text string, metadata map[string]any, confidence map[string]any, seconds int) error
	// MarkError moves the document to the terminal error status, keeping
	// the failure reason in its metadata.
	MarkError(ctx context.Context, id string, reason string) error
	Deactivate(ctx context.Context, id string) error
	Expired(ctx context.Context, now time.Time) ([]Document, error)
	ActiveDocumentIDs(ctx context.Context) ([]string, error)
}

// ChunkStore mirrors what is in the vector index for non-vector reads.
type ChunkStore interface {
	// Replace swaps the full chunk set of a document in one transaction;
	// chunks are never partially updated.
	Replace(ctx context.Context, documentID string, chunks []DocumentChunk) error
	DeleteByDocument(ctx context.Context, documentID string) error
	DocumentIDs(ctx context.Context) ([]string, error)
}

// StoredFile describes a persisted upload.
type StoredFile struct {
	Path     string
	Filename string
	Size     int64
	MimeType string
}

// FileStore keeps the original uploaded bytes keyed by document id.
type FileStore interface {
	Save(originalName string, src io.Reader, documentID string) (*StoredFile, error)
	Delete(path string) error
}
