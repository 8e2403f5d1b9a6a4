package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"docq/internal/domain"
)

// Reaper retracts expired documents from every store. Cleanup of the
// file and the index entries is best-effort; the soft delete always
// proceeds, and re-running finds nothing left to reap.
type Reaper struct {
	docs   domain.DocumentStore
	chunks domain.ChunkStore
	index  domain.VectorIndex
	files  domain.FileStore
	logger *zap.Logger
	now    func() time.Time
}

func NewReaper(docs domain.DocumentStore, chunks domain.ChunkStore, index domain.VectorIndex, files domain.FileStore, logger *zap.Logger) *Reaper {
	return &Reaper{
		docs:   docs,
		chunks: chunks,
		index:  index,
		files:  files,
		logger: logger.With(zap.String("service", "reaper")),
		now:    time.Now,
	}
}

// Sweep cleans every active document whose session has expired and
// returns the number cleaned. A failure on one document never aborts
// the sweep of the rest.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	expired, err := r.docs.Expired(ctx, r.now().UTC())
	if err != nil {
		return 0, err
	}

	cleaned := 0
	for _, doc := range expired {
		log := r.logger.With(zap.String("document_id", doc.ID))

		if doc.FilePath != "" {
			if err := r.files.Delete(doc.FilePath); err != nil {
				log.Warn("delete stored file", zap.Error(err))
			}
		}
		if err := r.index.DeleteDocument(ctx, doc.ID); err != nil {
			log.Warn("delete vector records", zap.Error(err))
		}
		if err := r.chunks.DeleteByDocument(ctx, doc.ID); err != nil {
			log.Warn("delete chunk rows", zap.Error(err))
		}
		if err := r.docs.Deactivate(ctx, doc.ID); err != nil {
			log.Error("deactivate document", zap.Error(err))
			continue
		}
		cleaned++
	}

	if cleaned > 0 {
		r.logger.Info("sweep finished", zap.Int("documents_cleaned", cleaned))
	}
	return cleaned, nil
}

// Reconcile repairs divergence between the vector index and the
// registry: index entries whose document is gone or inactive are
// deleted from the index and the chunk store. This is the repair path
// for partial failures between the two stores, which share no
// transaction.
func (r *Reaper) Reconcile(ctx context.Context) (int, error) {
	indexed, err := r.index.DocumentIDs(ctx)
	if err != nil {
		return 0, err
	}
	activeIDs, err := r.docs.ActiveDocumentIDs(ctx)
	if err != nil {
		return 0, err
	}
	active := make(map[string]struct{}, len(activeIDs))
	for _, id := range activeIDs {
		active[id] = struct{}{}
	}

	removed := 0
	for _, id := range indexed {
		if _, ok := active[id]; ok {
			continue
		}
		log := r.logger.With(zap.String("document_id", id))
		if err := r.index.DeleteDocument(ctx, id); err != nil {
			log.Warn("delete orphaned vector records", zap.Error(err))
			continue
		}
		if err := r.chunks.DeleteByDocument(ctx, id); err != nil {
			log.Warn("delete orphaned chunk rows", zap.Error(err))
		}
		removed++
	}
	if removed > 0 {
		r.logger.Info("reconcile finished", zap.Int("documents_removed", removed))
	}
	return removed, nil
}

// Run sweeps and reconciles on the given interval until ctx ends.
func (r *Reaper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.logger.Error("sweep failed", zap.Error(err))
			}
			if _, err := r.Reconcile(ctx); err != nil {
				r.logger.Error("reconcile failed", zap.Error(err))
			}
		}
	}
}
