package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docq/internal/chunker"
	"docq/internal/domain"
	"docq/internal/embedding"
	"docq/internal/extractor"
)

func newPipelineFixture(t *testing.T) (*fakeDocs, *fakeChunks, *countingIndex, *Pipeline) {
	t.Helper()
	docs := newFakeDocs()
	chunks := newFakeChunks()
	idx := newCountingIndex()
	ix := NewIndexer(chunker.NewSentenceChunker(300, 0), embedding.NewHashingEmbedder(32), idx, chunks, zap.NewNop())
	selector := extractor.NewSelector(extractor.NewPDFExtractor(), extractor.NewPlainExtractor(), nil)
	p := NewPipeline(docs, ix, selector, PipelineConfig{Workers: 1, JobTimeout: 10 * time.Second}, zap.NewNop())
	return docs, chunks, idx, p
}

func writeUpload(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessPlainTextDocumentEndsIndexed(t *testing.T) {
	docs, chunks, _, p := newPipelineFixture(t)
	ctx := context.Background()

	path := writeUpload(t, "invoice.txt", "Fatura 2024. Total: R$ 150,00 com vencimento em 10/05/2024. Contato: cobranca@example.com.")
	seedDoc(t, docs, "doc-a", "s", domain.StatusUploading, time.Now().Add(time.Hour))

	p.process(ctx, Job{DocumentID: "doc-a", FilePath: path})

	doc, err := docs.Get(ctx, "doc-a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIndexed, doc.Status)
	assert.Contains(t, doc.ExtractedText, "150,00")
	assert.NotNil(t, doc.ProcessedAt)

	require.NotNil(t, doc.Metadata)
	assert.Contains(t, doc.Metadata, "value")
	assert.Contains(t, doc.Metadata, "email")

	rows, err := chunks.DocumentIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-a"}, rows)
}

func TestProcessMissingFileEndsInError(t *testing.T) {
	docs, _, _, p := newPipelineFixture(t)
	ctx := context.Background()

	seedDoc(t, docs, "doc-a", "s", domain.StatusUploading, time.Now().Add(time.Hour))
	p.process(ctx, Job{DocumentID: "doc-a", FilePath: "/nonexistent/file.txt"})

	doc, err := docs.Get(ctx, "doc-a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, doc.Status)
	require.NotNil(t, doc.Metadata)
	assert.NotEmpty(t, doc.Metadata["error"])
}

func TestProcessUnsupportedExtensionEndsInError(t *testing.T) {
	docs, _, _, p := newPipelineFixture(t)
	ctx := context.Background()

	path := writeUpload(t, "photo.png", "not really an image")
	seedDoc(t, docs, "doc-a", "s", domain.StatusUploading, time.Now().Add(time.Hour))
	p.process(ctx, Job{DocumentID: "doc-a", FilePath: path})

	doc, err := docs.Get(ctx, "doc-a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, doc.Status)
}

func TestProcessEmptyDocumentStopsAtIndexedWithNoChunks(t *testing.T) {
	docs, chunks, _, p := newPipelineFixture(t)
	ctx := context.Background()

	path := writeUpload(t, "empty.txt", "")
	seedDoc(t, docs, "doc-a", "s", domain.StatusUploading, time.Now().Add(time.Hour))
	p.process(ctx, Job{DocumentID: "doc-a", FilePath: path})

	doc, err := docs.Get(ctx, "doc-a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIndexed, doc.Status)

	rows, err := chunks.DocumentIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// ctxDocs rejects writes once the supplied context is dead, the way the
// gorm-backed store does.
type ctxDocs struct {
	*fakeDocs
}

func (d ctxDocs) SetStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.fakeDocs.SetStatus(ctx, id, status)
}

func (d ctxDocs) MarkProcessed(ctx context.Context, id string, text string, metadata map[string]any, confidence map[string]any, seconds int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.fakeDocs.MarkProcessed(ctx, id, text, metadata, confidence, seconds)
}

func (d ctxDocs) MarkError(ctx context.Context, id string, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.fakeDocs.MarkError(ctx, id, reason)
}

func TestShutdownDrainCompletesAcceptedJobs(t *testing.T) {
	docs := newFakeDocs()
	chunks := newFakeChunks()
	idx := newCountingIndex()
	ix := NewIndexer(chunker.NewSentenceChunker(300, 0), embedding.NewHashingEmbedder(32), idx, chunks, zap.NewNop())
	selector := extractor.NewSelector(extractor.NewPDFExtractor(), extractor.NewPlainExtractor(), nil)
	p := NewPipeline(ctxDocs{docs}, ix, selector, PipelineConfig{Workers: 1, JobTimeout: 10 * time.Second}, zap.NewNop())

	path := writeUpload(t, "late.txt", "Documento aceito pouco antes do desligamento.")
	seedDoc(t, docs, "doc-a", "s", domain.StatusUploading, time.Now().Add(time.Hour))

	// Pool context already cancelled: the drain must still finish the
	// accepted job instead of stranding it in a non-terminal status.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p.Start(ctx)
	p.Enqueue(Job{DocumentID: "doc-a", FilePath: path})
	p.Shutdown()

	doc, err := docs.Get(context.Background(), "doc-a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIndexed, doc.Status)
}

func TestPipelineWorkersDrainQueue(t *testing.T) {
	docs, _, _, p := newPipelineFixture(t)
	ctx := context.Background()

	var paths []string
	for _, id := range []string{"doc-a", "doc-b", "doc-c"} {
		paths = append(paths, writeUpload(t, id+".txt", "Conteudo do documento "+id+"."))
		seedDoc(t, docs, id, "s", domain.StatusUploading, time.Now().Add(time.Hour))
	}

	p.Start(ctx)
	for i, id := range []string{"doc-a", "doc-b", "doc-c"} {
		p.Enqueue(Job{DocumentID: id, FilePath: paths[i]})
	}
	p.Shutdown()

	for _, id := range []string{"doc-a", "doc-b", "doc-c"} {
		doc, err := docs.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusIndexed, doc.Status)
	}
}
