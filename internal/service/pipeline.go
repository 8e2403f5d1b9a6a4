package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"docq/internal/domain"
	"docq/internal/extractor"
	"docq/internal/metadata"
)

// Job is one background processing request. Exactly one job is
// enqueued per document, at upload time.
type Job struct {
	DocumentID string
	FilePath   string
}

// PipelineConfig bounds the worker pool and guards against stuck
// extraction calls.
type PipelineConfig struct {
	Workers             int
	JobTimeout          time.Duration
	ConfidenceThreshold float64
	QueueSize           int
}

// Pipeline runs the per-document stages strictly in order: extract
// text, record extraction results, index, mark indexed. Stages for
// different documents run concurrently on the worker pool; there is no
// cross-document ordering guarantee.
type Pipeline struct {
	docs     domain.DocumentStore
	indexer  *Indexer
	selector *extractor.Selector
	logger   *zap.Logger
	cfg      PipelineConfig

	jobs chan Job
	wg   sync.WaitGroup
}

func NewPipeline(docs domain.DocumentStore, indexer *Indexer, selector *extractor.Selector, cfg PipelineConfig, logger *zap.Logger) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.3
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	return &Pipeline{
		docs:     docs,
		indexer:  indexer,
		selector: selector,
		logger:   logger.With(zap.String("service", "pipeline")),
		cfg:      cfg,
		jobs:     make(chan Job, cfg.QueueSize),
	}
}

// Start launches the worker pool. Workers drain remaining jobs after
// ctx is cancelled so accepted uploads are not lost on shutdown.
func (p *Pipeline) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.process(ctx, job)
			}
		}()
	}
}

// Enqueue submits a job; the bounded queue applies backpressure to
// uploads when processing falls behind.
func (p *Pipeline) Enqueue(job Job) {
	p.jobs <- job
}

// Shutdown stops accepting jobs and waits for in-flight work.
func (p *Pipeline) Shutdown() {
	close(p.jobs)
	p.wg.Wait()
}

func (p *Pipeline) process(ctx context.Context, job Job) {
	// Accepted jobs run to completion even when the pool context is
	// already cancelled during the shutdown drain; the watchdog timeout
	// still bounds each job.
	base := ctx
	if base.Err() != nil {
		base = context.Background()
	}
	jctx, cancel := context.WithTimeout(base, p.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	log := p.logger.With(zap.String("document_id", job.DocumentID))

	if err := p.docs.SetStatus(jctx, job.DocumentID, domain.StatusProcessing); err != nil {
		p.fail(jctx, job.DocumentID, err, log)
		return
	}

	ext, err := p.selector.Select(job.FilePath)
	if err != nil {
		p.fail(jctx, job.DocumentID, err, log)
		return
	}
	extraction, err := ext.Extract(jctx, job.FilePath)
	if err != nil {
		p.fail(jctx, job.DocumentID, err, log)
		return
	}

	text, confidence := extractor.Summarize(extraction, p.cfg.ConfidenceThreshold)
	meta := metadata.Extract(text)
	seconds := int(time.Since(start).Seconds())

	if err := p.docs.MarkProcessed(jctx, job.DocumentID, text, meta, confidence, seconds); err != nil {
		p.fail(jctx, job.DocumentID, err, log)
		return
	}

	chunkIDs, err := p.indexer.IndexDocument(jctx, job.DocumentID, text, meta)
	if err != nil {
		p.fail(jctx, job.DocumentID, err, log)
		return
	}
	if err := p.docs.SetStatus(jctx, job.DocumentID, domain.StatusIndexed); err != nil {
		p.fail(jctx, job.DocumentID, err, log)
		return
	}

	log.Info("document processed",
		zap.Int("chunks", len(chunkIDs)),
		zap.String("extractor", ext.Name()),
		zap.Duration("took", time.Since(start)))
}

// fail records the terminal error status with a human-readable reason.
// The job context may already be dead (watchdog timeout), so the write
// uses a fresh one.
func (p *Pipeline) fail(jctx context.Context, documentID string, cause error, log *zap.Logger) {
	reason := cause.Error()
	if errors.Is(jctx.Err(), context.DeadlineExceeded) {
		reason = "processing timed out"
	}
	log.Error("document processing failed", zap.Error(cause))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.docs.MarkError(ctx, documentID, reason); err != nil {
		log.Error("record error status", zap.Error(err))
	}
}
