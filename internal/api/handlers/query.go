package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docq/internal/domain"
	"docq/internal/service"
	"docq/pkg/metrics"
)

// QueryHandler covers ask and search.
type QueryHandler struct {
	rag     *service.RAG
	metrics *metrics.Collector
	logger  *zap.Logger
}

func NewQueryHandler(rag *service.RAG, collector *metrics.Collector, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		rag:     rag,
		metrics: collector,
		logger:  logger.With(zap.String("handler", "query")),
	}
}

type askRequest struct {
	Question   string `json:"question" binding:"required"`
	SessionID  string `json:"session_id" binding:"required"`
	MaxChunks  int    `json:"max_chunks"`
	DocumentID string `json:"document_id"`
}

func (h *QueryHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question and session_id are required"})
		return
	}

	start := time.Now()
	answer, err := h.rag.Ask(c.Request.Context(), req.Question, req.SessionID, req.MaxChunks, req.DocumentID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoSessionDocuments):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrNotInSession):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			h.logger.Error("ask failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to answer question"})
		}
		return
	}

	h.metrics.Increment("questions_answered_total")
	h.metrics.ObserveLatency("ask", time.Since(start))
	c.JSON(http.StatusOK, answer)
}

type searchRequest struct {
	Query          string  `json:"query" binding:"required"`
	SessionID      string  `json:"session_id" binding:"required"`
	Limit          int     `json:"limit"`
	ScoreThreshold float64 `json:"score_threshold"`
}

func (h *QueryHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query and session_id are required"})
		return
	}

	start := time.Now()
	passages, err := h.rag.Search(c.Request.Context(), req.Query, req.SessionID, req.Limit, req.ScoreThreshold)
	if err != nil {
		h.logger.Error("search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	h.metrics.Increment("searches_total")
	h.metrics.ObserveLatency("search", time.Since(start))
	c.JSON(http.StatusOK, gin.H{
		"query":   req.Query,
		"results": passages,
		"total":   len(passages),
	})
}
