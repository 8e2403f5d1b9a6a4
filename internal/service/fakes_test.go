package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"docq/internal/domain"
	"docq/internal/vectorstore/memory"
)

// fakeDocs is an in-memory DocumentStore for service tests.
type fakeDocs struct {
	mu   sync.Mutex
	docs map[string]*domain.Document
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{docs: make(map[string]*domain.Document)}
}

func (f *fakeDocs) Create(_ context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *doc
	f.docs[doc.ID] = &cp
	return nil
}

func (f *fakeDocs) Get(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (f *fakeDocs) List(_ context.Context, opts domain.ListOptions) ([]domain.Document, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Document
	for _, doc := range f.docs {
		if !doc.IsActive || doc.SessionID != opts.SessionID {
			continue
		}
		if opts.Status != "" && doc.Status != opts.Status {
			continue
		}
		out = append(out, *doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, int64(len(out)), nil
}

func (f *fakeDocs) Visible(_ context.Context, sessionID string, now time.Time) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Document
	for _, doc := range f.docs {
		if doc.SessionID == sessionID && doc.Eligible(now) {
			out = append(out, *doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDocs) SetStatus(_ context.Context, id string, status domain.DocumentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = status
	return nil
}

func (f *fakeDocs) MarkProcessed(_ context.Context, id string, text string, metadata map[string]any, confidence map[string]any, seconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	doc.Status = domain.StatusProcessed
	doc.ExtractedText = text
	doc.Metadata = metadata
	doc.OCRConfidence = confidence
	doc.ProcessingTime = seconds
	doc.ProcessedAt = &now
	return nil
}

func (f *fakeDocs) MarkError(_ context.Context, id string, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = domain.StatusError
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	doc.Metadata["error"] = reason
	return nil
}

func (f *fakeDocs) Deactivate(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.IsActive = false
	return nil
}

func (f *fakeDocs) Expired(_ context.Context, now time.Time) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Document
	for _, doc := range f.docs {
		if doc.IsActive && !now.Before(doc.SessionExpiresAt) {
			out = append(out, *doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDocs) ActiveDocumentIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, doc := range f.docs {
		if doc.IsActive {
			ids = append(ids, doc.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// fakeChunks is an in-memory ChunkStore.
type fakeChunks struct {
	mu     sync.Mutex
	chunks map[string][]domain.DocumentChunk

	deleteErr error
}

func newFakeChunks() *fakeChunks {
	return &fakeChunks{chunks: make(map[string][]domain.DocumentChunk)}
}

func (f *fakeChunks) Replace(_ context.Context, documentID string, chunks []domain.DocumentChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[documentID] = append([]domain.DocumentChunk(nil), chunks...)
	return nil
}

func (f *fakeChunks) DeleteByDocument(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.chunks, documentID)
	return nil
}

func (f *fakeChunks) DocumentIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.chunks))
	for id := range f.chunks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// fakeFiles tracks deletions without touching the filesystem.
type fakeFiles struct {
	mu      sync.Mutex
	deleted []string

	deleteErr error
}

func (f *fakeFiles) Save(string, io.Reader, string) (*domain.StoredFile, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeFiles) Delete(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, path)
	return nil
}

// countingIndex wraps the in-memory index and counts capability calls.
type countingIndex struct {
	*memory.Storage

	mu       sync.Mutex
	searches int
	deletes  int
}

func newCountingIndex() *countingIndex {
	return &countingIndex{Storage: memory.NewStorage()}
}

func (c *countingIndex) Search(ctx context.Context, vector []float64, limit int, scoreThreshold float64, filter domain.IndexFilter) ([]domain.SearchHit, error) {
	c.mu.Lock()
	c.searches++
	c.mu.Unlock()
	return c.Storage.Search(ctx, vector, limit, scoreThreshold, filter)
}

func (c *countingIndex) DeleteDocument(ctx context.Context, documentID string) error {
	c.mu.Lock()
	c.deletes++
	c.mu.Unlock()
	return c.Storage.DeleteDocument(ctx, documentID)
}

// recordCompleter records prompts and returns a canned answer.
type recordCompleter struct {
	mu      sync.Mutex
	prompts []string
	reply   string
}

func (c *recordCompleter) Name() string { return "record" }

func (c *recordCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if c.reply == "" {
		return "canned answer", nil
	}
	return c.reply, nil
}

func (c *recordCompleter) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

// failCompleter always errors.
type failCompleter struct{}

func (failCompleter) Name() string { return "fail" }

func (failCompleter) Complete(context.Context, string) (string, error) {
	return "", errors.New("completion backend unavailable")
}
