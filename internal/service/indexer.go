package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docq/internal/chunker"
	"docq/internal/domain"
)

// Indexer composes chunking, batch embedding, vector upsert and chunk
// persistence into one index-document operation.
type Indexer struct {
	chunker  *chunker.SentenceChunker
	embedder domain.Embedder
	index    domain.VectorIndex
	chunks   domain.ChunkStore
	logger   *zap.Logger
}

func NewIndexer(ch *chunker.SentenceChunker, embedder domain.Embedder, index domain.VectorIndex, chunks domain.ChunkStore, logger *zap.Logger) *Indexer {
	return &Indexer{
		chunker:  ch,
		embedder: embedder,
		index:    index,
		chunks:   chunks,
		logger:   logger.With(zap.String("service", "indexer")),
	}
}

// IndexDocument splits the text, embeds every chunk in one batched
// call, then writes the vector records and the mirrored chunk rows. The
// chunk set of the document is fully replaced. An empty document yields
// zero chunk ids and is not an error. A chunk/embedding count mismatch
// aborts before any write.
func (ix *Indexer) IndexDocument(ctx context.Context, documentID string, text string, meta map[string]any) ([]string, error) {
	texts := ix.chunker.Chunk(text)
	if len(texts) == 0 {
		ix.logger.Info("document produced no chunks", zap.String("document_id", documentID))
		return nil, nil
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: %d chunks, %d embeddings", domain.ErrEmbeddingCount, len(texts), len(vectors))
	}

	now := time.Now().UTC()
	chunkIDs := make([]string, len(texts))
	records := make([]domain.VectorRecord, len(texts))
	rows := make([]domain.DocumentChunk, len(texts))
	for i, chunkText := range texts {
		id := uuid.NewString()
		chunkIDs[i] = id
		records[i] = domain.VectorRecord{
			ID:     id,
			Vector: vectors[i],
			Payload: domain.ChunkPayload{
				DocumentID: documentID,
				ChunkText:  chunkText,
				ChunkIndex: i,
				Metadata:   meta,
			},
		}
		rows[i] = domain.DocumentChunk{
			ID:         id,
			DocumentID: documentID,
			ChunkText:  chunkText,
			ChunkIndex: i,
			VectorID:   id,
			CreatedAt:  now,
		}
	}

	if err := ix.index.Ensure(ctx, len(vectors[0])); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}
	if err := ix.index.Upsert(ctx, records); err != nil {
		return nil, fmt.Errorf("upsert vectors: %w", err)
	}
	// The two stores are not one transactional resource. If this commit
	// fails the vector rows are orphaned until the reconciliation sweep
	// removes them.
	if err := ix.chunks.Replace(ctx, documentID, rows); err != nil {
		return nil, fmt.Errorf("persist chunks: %w", err)
	}

	ix.logger.Info("document indexed",
		zap.String("document_id", documentID),
		zap.Int("chunks", len(chunkIDs)))
	return chunkIDs, nil
}
