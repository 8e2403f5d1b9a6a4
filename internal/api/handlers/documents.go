package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"docq/internal/domain"
	"docq/internal/service"
	"docq/pkg/metrics"
)

const defaultSessionTTL = time.Hour

// DocumentHandler covers the document lifecycle endpoints: upload,
// status, listing and deletion.
type DocumentHandler struct {
	docs     domain.DocumentStore
	chunks   domain.ChunkStore
	index    domain.VectorIndex
	files    domain.FileStore
	pipeline *service.Pipeline
	metrics  *metrics.Collector
	logger   *zap.Logger
}

func NewDocumentHandler(
	docs domain.DocumentStore,
	chunks domain.ChunkStore,
	index domain.VectorIndex,
	files domain.FileStore,
	pipeline *service.Pipeline,
	collector *metrics.Collector,
	logger *zap.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		docs:     docs,
		chunks:   chunks,
		index:    index,
		files:    files,
		pipeline: pipeline,
		metrics:  collector,
		logger:   logger.With(zap.String("handler", "document")),
	}
}

// Upload accepts a multipart file bound to a session and enqueues the
// processing job. The response returns immediately; callers poll the
// document status until it reaches indexed.
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	sessionID := c.PostForm("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	expiresAt := time.Now().UTC().Add(defaultSessionTTL)
	if raw := c.PostForm("session_expires_at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_expires_at must be RFC3339"})
			return
		}
		expiresAt = parsed.UTC()
	}
	if !expiresAt.After(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_expires_at is in the past"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer src.Close()

	documentID := uuid.NewString()
	stored, err := h.files.Save(fileHeader.Filename, src, documentID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrFileType):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrFileTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		default:
			h.logger.Error("save upload failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		}
		return
	}

	doc := &domain.Document{
		ID:               documentID,
		Filename:         stored.Filename,
		FilePath:         stored.Path,
		FileSize:         stored.Size,
		MimeType:         stored.MimeType,
		SessionID:        sessionID,
		SessionExpiresAt: expiresAt,
		Status:           domain.StatusUploading,
		IsActive:         true,
	}
	if err := h.docs.Create(c.Request.Context(), doc); err != nil {
		h.logger.Error("create document failed", zap.Error(err))
		_ = h.files.Delete(stored.Path)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register document"})
		return
	}

	h.pipeline.Enqueue(service.Job{DocumentID: documentID, FilePath: stored.Path})
	h.metrics.Increment("documents_uploaded_total")
	h.logger.Info("document uploaded",
		zap.String("document_id", documentID),
		zap.String("session_id", sessionID),
		zap.Int64("size", stored.Size))

	c.JSON(http.StatusOK, gin.H{
		"document_id": documentID,
		"filename":    stored.Filename,
		"status":      "processing",
		"message":     "Document uploaded. Processing runs in the background.",
	})
}

func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidID.Error()})
		return
	}

	doc, err := h.docs.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("get document failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load document"})
		return
	}
	if !doc.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	opts := domain.ListOptions{
		SessionID: sessionID,
		Status:    domain.DocumentStatus(c.Query("status")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		opts.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
			return
		}
		opts.Offset = offset
	}

	docs, total, err := h.docs.List(c.Request.Context(), opts)
	if err != nil {
		h.logger.Error("list documents failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "total": total})
}

// DeleteDocument retracts one document: best-effort cleanup of the file
// and index, then the soft delete. The caller must own the session.
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidID.Error()})
		return
	}
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	ctx := c.Request.Context()
	doc, err := h.docs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("get document failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load document"})
		return
	}
	if doc.SessionID != sessionID {
		c.JSON(http.StatusForbidden, gin.H{"error": domain.ErrNotInSession.Error()})
		return
	}
	if !doc.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrNotFound.Error()})
		return
	}

	log := h.logger.With(zap.String("document_id", id))
	if doc.FilePath != "" {
		if err := h.files.Delete(doc.FilePath); err != nil {
			log.Warn("delete stored file", zap.Error(err))
		}
	}
	if err := h.index.DeleteDocument(ctx, id); err != nil {
		log.Warn("delete vector records", zap.Error(err))
	}
	if err := h.chunks.DeleteByDocument(ctx, id); err != nil {
		log.Warn("delete chunk rows", zap.Error(err))
	}
	if err := h.docs.Deactivate(ctx, id); err != nil {
		log.Error("deactivate document", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete document"})
		return
	}

	h.metrics.Increment("documents_deleted_total")
	c.JSON(http.StatusOK, gin.H{"message": "document deleted", "document_id": id})
}
