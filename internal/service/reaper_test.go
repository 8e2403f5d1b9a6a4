package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docq/internal/domain"
	"docq/internal/embedding"
)

func newReaperFixture(t *testing.T) (*fakeDocs, *fakeChunks, *countingIndex, *fakeFiles, *Reaper) {
	t.Helper()
	docs := newFakeDocs()
	chunks := newFakeChunks()
	idx := newCountingIndex()
	files := &fakeFiles{}
	reaper := NewReaper(docs, chunks, idx, files, zap.NewNop())
	return docs, chunks, idx, files, reaper
}

func seedExpired(t *testing.T, docs *fakeDocs, chunks *fakeChunks, idx *countingIndex, id string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, docs.Create(ctx, &domain.Document{
		ID:               id,
		Filename:         id + ".pdf",
		FilePath:         "/tmp/uploads/" + id + ".pdf",
		SessionID:        "s",
		SessionExpiresAt: time.Now().Add(-time.Minute),
		Status:           domain.StatusIndexed,
		IsActive:         true,
	}))
	seedIndex(t, embedding.NewHashingEmbedder(16), idx, id, "expired document body")
	require.NoError(t, chunks.Replace(ctx, id, []domain.DocumentChunk{
		{ID: id + "-c0", DocumentID: id, ChunkText: "expired document body", VectorID: id + "-c0"},
	}))
}

func TestSweepCleansEveryStore(t *testing.T) {
	docs, chunks, idx, files, reaper := newReaperFixture(t)
	ctx := context.Background()
	seedExpired(t, docs, chunks, idx, "doc-a")

	cleaned, err := reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cleaned)

	assert.Equal(t, []string{"/tmp/uploads/doc-a.pdf"}, files.deleted)

	indexed, err := idx.DocumentIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, indexed)

	stored, err := chunks.DocumentIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)

	doc, err := docs.Get(ctx, "doc-a")
	require.NoError(t, err)
	assert.False(t, doc.IsActive)
	assert.Equal(t, domain.StatusIndexed, doc.Status)
}

func TestSweepIsIdempotent(t *testing.T) {
	docs, chunks, idx, _, reaper := newReaperFixture(t)
	ctx := context.Background()
	seedExpired(t, docs, chunks, idx, "doc-a")

	cleaned, err := reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cleaned)

	cleaned, err = reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, cleaned)
}

func TestSweepLeavesUnexpiredDocumentsAlone(t *testing.T) {
	docs, chunks, idx, files, reaper := newReaperFixture(t)
	ctx := context.Background()
	seedExpired(t, docs, chunks, idx, "doc-old")
	seedDoc(t, docs, "doc-live", "s", domain.StatusIndexed, time.Now().Add(time.Hour))

	cleaned, err := reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cleaned)
	assert.Len(t, files.deleted, 1)

	doc, err := docs.Get(ctx, "doc-live")
	require.NoError(t, err)
	assert.True(t, doc.IsActive)
}

func TestSweepContinuesPastPartialFailures(t *testing.T) {
	docs, chunks, idx, files, reaper := newReaperFixture(t)
	ctx := context.Background()
	seedExpired(t, docs, chunks, idx, "doc-a")
	files.deleteErr = errors.New("disk unavailable")
	chunks.deleteErr = errors.New("db unavailable")

	cleaned, err := reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cleaned)

	// The soft delete proceeds even when cleanup of the other stores fails.
	doc, err := docs.Get(ctx, "doc-a")
	require.NoError(t, err)
	assert.False(t, doc.IsActive)
}

func TestReconcileRemovesOrphanedIndexEntries(t *testing.T) {
	docs, chunks, idx, _, reaper := newReaperFixture(t)
	ctx := context.Background()

	seedDoc(t, docs, "doc-live", "s", domain.StatusIndexed, time.Now().Add(time.Hour))
	emb := embedding.NewHashingEmbedder(16)
	seedIndex(t, emb, idx, "doc-live", "live document body")
	seedIndex(t, emb, idx, "doc-ghost", "orphaned vectors with no registry row")
	require.NoError(t, chunks.Replace(ctx, "doc-ghost", []domain.DocumentChunk{
		{ID: "doc-ghost-c0", DocumentID: "doc-ghost", ChunkText: "orphaned", VectorID: "doc-ghost-c0"},
	}))

	removed, err := reaper.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	indexed, err := idx.DocumentIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-live"}, indexed)

	stored, err := chunks.DocumentIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestReconcileNothingToDo(t *testing.T) {
	docs, _, idx, _, reaper := newReaperFixture(t)
	ctx := context.Background()
	seedDoc(t, docs, "doc-live", "s", domain.StatusIndexed, time.Now().Add(time.Hour))
	seedIndex(t, embedding.NewHashingEmbedder(16), idx, "doc-live", "live document body")

	removed, err := reaper.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Zero(t, idx.deletes)
}
