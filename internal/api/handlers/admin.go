package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docq/internal/domain"
	"docq/internal/service"
	"docq/pkg/metrics"
)

// Pinger is the liveness check the registry database exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AdminHandler covers the operational endpoints: health, metrics and
// the manual cleanup trigger.
type AdminHandler struct {
	reaper     *service.Reaper
	db         Pinger
	index      domain.VectorIndex
	completer  domain.Completer
	extractors []string
	metrics    *metrics.Collector
	logger     *zap.Logger
}

func NewAdminHandler(
	reaper *service.Reaper,
	db Pinger,
	index domain.VectorIndex,
	completer domain.Completer,
	extractors []string,
	collector *metrics.Collector,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		reaper:     reaper,
		db:         db,
		index:      index,
		completer:  completer,
		extractors: extractors,
		metrics:    collector,
		logger:     logger.With(zap.String("handler", "admin")),
	}
}

// Cleanup runs one sweep plus reconciliation on demand, ahead of the
// periodic schedule.
func (h *AdminHandler) Cleanup(c *gin.Context) {
	ctx := c.Request.Context()
	cleaned, err := h.reaper.Sweep(ctx)
	if err != nil {
		h.logger.Error("cleanup sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cleanup failed"})
		return
	}
	reconciled, err := h.reaper.Reconcile(ctx)
	if err != nil {
		h.logger.Error("cleanup reconcile failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"expired_documents_cleaned":  cleaned,
		"orphaned_documents_removed": reconciled,
	})
}

// Health reports the status of every backend. Degraded backends still
// answer 200; the body says which ones are down.
func (h *AdminHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	dbStatus := "up"
	if err := h.db.Ping(ctx); err != nil {
		dbStatus = "down"
	}
	indexStatus := "up"
	if err := h.index.Ping(ctx); err != nil {
		indexStatus = "down"
	}

	status := "ok"
	if dbStatus == "down" || indexStatus == "down" {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"database":   dbStatus,
		"index":      indexStatus,
		"completer":  h.completer.Name(),
		"extractors": h.extractors,
		"timestamp":  time.Now().UTC(),
	})
}

func (h *AdminHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"counters":  h.metrics.Counters(),
		"latencies": h.metrics.Latencies(),
	})
}
