package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"docq/internal/domain"
)

const (
	noContextAnswer   = "Sorry, I could not find relevant information in the documents to answer your question."
	synthesizerFailed = "Sorry, an error occurred while processing your question."

	promptTemplate = `You are an assistant that answers questions about documents.

Context:
%s

Question: %s

Instructions:
- Be precise and objective
- Cite relevant passages when possible

Answer:`

	sourcePreviewLimit = 200
)

// Source points an answer back at the passage it came from.
type Source struct {
	DocumentID     string  `json:"document_id"`
	ChunkText      string  `json:"chunk_text"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Answer is the result of one ask operation.
type Answer struct {
	Answer     string    `json:"answer"`
	Sources    []Source  `json:"sources"`
	Confidence float64   `json:"confidence"`
	Question   string    `json:"question"`
	ChunksUsed int       `json:"chunks_used"`
	Timestamp  time.Time `json:"timestamp"`
}

// RAGConfig carries the retrieval policy. One score threshold governs
// both ask and search.
type RAGConfig struct {
	ScoreThreshold   float64
	DefaultMaxChunks int
	SearchLimit      int
}

// RAG composes the session gate, the retriever and the answer
// synthesizer into the ask and search operations.
type RAG struct {
	gate      *SessionGate
	embedder  domain.Embedder
	index     domain.VectorIndex
	completer domain.Completer
	logger    *zap.Logger
	cfg       RAGConfig
}

func NewRAG(gate *SessionGate, embedder domain.Embedder, index domain.VectorIndex, completer domain.Completer, cfg RAGConfig, logger *zap.Logger) *RAG {
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = 0.3
	}
	if cfg.DefaultMaxChunks <= 0 {
		cfg.DefaultMaxChunks = 3
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 5
	}
	return &RAG{
		gate:      gate,
		embedder:  embedder,
		index:     index,
		completer: completer,
		logger:    logger.With(zap.String("service", "rag")),
		cfg:       cfg,
	}
}

// Ask answers a question over the session's visible documents. A
// session without eligible documents is rejected with
// ErrNoSessionDocuments before any capability call; a pinned document
// outside the session is rejected with ErrNotInSession, never silently
// widened or narrowed. Zero retrieved passages and synthesizer failures
// are success paths with a fixed answer and confidence 0.
func (r *RAG) Ask(ctx context.Context, question, sessionID string, maxChunks int, documentID string) (*Answer, error) {
	visible, err := r.gate.VisibleIDs(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve session documents: %w", err)
	}
	if len(visible) == 0 {
		return nil, domain.ErrNoSessionDocuments
	}

	filter := domain.IndexFilter{DocumentIDs: visible}
	if documentID != "" {
		if !contains(visible, documentID) {
			return nil, domain.ErrNotInSession
		}
		filter = domain.IndexFilter{DocumentID: documentID}
	}

	if maxChunks <= 0 {
		maxChunks = r.cfg.DefaultMaxChunks
	}
	passages, err := r.retrieve(ctx, question, maxChunks, r.cfg.ScoreThreshold, filter)
	if err != nil {
		// Retrieval failures degrade to a no-context answer rather than
		// surfacing a capability error to the caller.
		r.logger.Error("retrieval failed", zap.Error(err))
		passages = nil
	}

	answer := &Answer{
		Question:  question,
		Timestamp: time.Now().UTC(),
	}
	if len(passages) == 0 {
		answer.Answer = noContextAnswer
		answer.Sources = []Source{}
		return answer, nil
	}

	var b strings.Builder
	for _, p := range passages {
		fmt.Fprintf(&b, "Document %s: %s\n\n", shortID(p.DocumentID), p.ChunkText)
	}
	prompt := fmt.Sprintf(promptTemplate, strings.TrimSpace(b.String()), question)

	text, err := r.completer.Complete(ctx, prompt)
	if err != nil {
		r.logger.Error("answer synthesis failed", zap.Error(err))
		answer.Answer = synthesizerFailed
		answer.Sources = []Source{}
		return answer, nil
	}

	sum := 0.0
	sources := make([]Source, len(passages))
	for i, p := range passages {
		sum += p.Score
		sources[i] = Source{
			DocumentID:     p.DocumentID,
			ChunkText:      preview(p.ChunkText),
			RelevanceScore: p.Score,
		}
	}
	confidence := sum / float64(len(passages))
	if confidence > 1.0 {
		confidence = 1.0
	}

	answer.Answer = strings.TrimSpace(text)
	answer.Sources = sources
	answer.Confidence = confidence
	answer.ChunksUsed = len(passages)
	return answer, nil
}

// Search returns scored passages for a free-text query, restricted to
// the session's visible documents. An empty visibility set yields an
// empty result without touching the vector index. A scoreThreshold of
// zero or less means "use the configured default"; there is no
// unfiltered search, the configured threshold is the floor.
func (r *RAG) Search(ctx context.Context, query, sessionID string, limit int, scoreThreshold float64) ([]domain.Passage, error) {
	visible, err := r.gate.VisibleIDs(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve session documents: %w", err)
	}
	if len(visible) == 0 {
		return []domain.Passage{}, nil
	}
	if limit <= 0 {
		limit = r.cfg.SearchLimit
	}
	if scoreThreshold <= 0 {
		scoreThreshold = r.cfg.ScoreThreshold
	}
	return r.retrieve(ctx, query, limit, scoreThreshold, domain.IndexFilter{DocumentIDs: visible})
}

// retrieve embeds the query with the index-time embedder and runs a
// filtered similarity search. Hits come back ordered by descending
// score from the index.
func (r *RAG) retrieve(ctx context.Context, query string, limit int, scoreThreshold float64, filter domain.IndexFilter) ([]domain.Passage, error) {
	if filter.DocumentID == "" && len(filter.DocumentIDs) == 0 {
		return nil, nil
	}
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := r.index.Search(ctx, vector, limit, scoreThreshold, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	passages := make([]domain.Passage, len(hits))
	for i, h := range hits {
		passages[i] = domain.Passage{
			DocumentID: h.Payload.DocumentID,
			ChunkText:  h.Payload.ChunkText,
			ChunkIndex: h.Payload.ChunkIndex,
			Score:      h.Score,
		}
	}
	return passages, nil
}

func preview(text string) string {
	if len(text) <= sourcePreviewLimit {
		return text
	}
	return text[:sourcePreviewLimit] + "..."
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
