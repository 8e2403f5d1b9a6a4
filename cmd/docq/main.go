package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"docq/internal/api"
	"docq/internal/api/handlers"
	"docq/internal/chunker"
	"docq/internal/config"
	"docq/internal/domain"
	"docq/internal/embedding"
	"docq/internal/extractor"
	"docq/internal/llm"
	"docq/internal/service"
	"docq/internal/storage"
	"docq/internal/store"
	"docq/internal/vectorstore/memory"
	"docq/internal/vectorstore/qdrant"
	"docq/pkg/logger"
	"docq/pkg/metrics"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("service failed", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, log *zap.Logger) error {
	db, err := store.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	registry := store.New(db)

	index := buildIndex(cfg, log)
	embedder := buildEmbedder(cfg, log)

	files, err := storage.NewFileStore(cfg.Upload.Dir, cfg.Upload.MaxFileSize)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	var ocr domain.Extractor
	if cfg.OCR.ServiceURL != "" {
		ocr = extractor.NewRemoteOCR(extractor.RemoteOCRConfig{
			URL:     cfg.OCR.ServiceURL,
			Timeout: time.Duration(cfg.OCR.TimeoutSecs) * time.Second,
		})
	}
	selector := extractor.NewSelector(extractor.NewPDFExtractor(), extractor.NewPlainExtractor(), ocr)

	completer := llm.Select(llm.SelectConfig{
		GroqBaseURL:   cfg.LLM.GroqBaseURL,
		GroqModel:     cfg.LLM.GroqModel,
		OpenAIBaseURL: cfg.LLM.OpenAIBaseURL,
		OpenAIModel:   cfg.LLM.OpenAIModel,
		Timeout:       time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	}, log)

	split := chunker.NewSentenceChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	gate := service.NewSessionGate(registry)
	indexer := service.NewIndexer(split, embedder, index, registry, log)
	rag := service.NewRAG(gate, embedder, index, completer, service.RAGConfig{
		ScoreThreshold:   cfg.Retrieval.ScoreThreshold,
		DefaultMaxChunks: cfg.Retrieval.DefaultMaxChunks,
		SearchLimit:      cfg.Retrieval.SearchLimit,
	}, log)
	pipeline := service.NewPipeline(registry, indexer, selector, service.PipelineConfig{
		Workers:             cfg.Pipeline.Workers,
		JobTimeout:          time.Duration(cfg.Pipeline.JobTimeoutSecs) * time.Second,
		ConfidenceThreshold: cfg.OCR.ConfidenceThreshold,
	}, log)
	reaper := service.NewReaper(registry, registry, index, files, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline.Start(ctx)
	go reaper.Run(ctx, time.Duration(cfg.Reaper.IntervalSecs)*time.Second)

	collector := metrics.NewCollector()
	docHandler := handlers.NewDocumentHandler(registry, registry, index, files, pipeline, collector, log)
	qHandler := handlers.NewQueryHandler(rag, collector, log)
	admHandler := handlers.NewAdminHandler(reaper, registry, index, completer, selector.Names(), collector, log)

	router := api.NewRouter(log, collector, docHandler, qHandler, admHandler)
	router.SetupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{Addr: addr, Handler: router.Engine()}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	pipeline.Shutdown()
	return nil
}

func buildIndex(cfg *config.AppConfig, log *zap.Logger) domain.VectorIndex {
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant != nil {
		log.Info("using qdrant vector store", zap.String("url", cfg.VectorStore.Qdrant.URL))
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.VectorStore.Qdrant.URL,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		})
	}
	log.Info("using in-memory vector store")
	return memory.NewStorage()
}

func buildEmbedder(cfg *config.AppConfig, log *zap.Logger) domain.Embedder {
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		client, err := embedding.NewOpenAIClient(embedding.OpenAIConfig{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
			BatchSize: cfg.Embedder.OpenAI.BatchSize,
		})
		if err == nil {
			log.Info("using openai embedder", zap.String("model", cfg.Embedder.OpenAI.Model))
			return client
		}
		log.Warn("openai embedder unavailable, falling back to hashing", zap.Error(err))
	}
	log.Info("using hashing embedder", zap.Int("dimension", cfg.Embedder.Dimension))
	return embedding.NewHashingEmbedder(cfg.Embedder.Dimension)
}
