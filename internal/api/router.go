package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docq/internal/api/handlers"
	"docq/internal/api/middleware"
	"docq/pkg/metrics"
)

type Router struct {
	engine     *gin.Engine
	logger     *zap.Logger
	docHandler *handlers.DocumentHandler
	qHandler   *handlers.QueryHandler
	admHandler *handlers.AdminHandler
}

func NewRouter(
	logger *zap.Logger,
	collector *metrics.Collector,
	docHandler *handlers.DocumentHandler,
	qHandler *handlers.QueryHandler,
	admHandler *handlers.AdminHandler,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	reqMiddleware := middleware.NewRequestMiddleware(logger, collector)
	engine.Use(reqMiddleware.RecoverPanic())
	engine.Use(reqMiddleware.LogRequest())

	return &Router{
		engine:     engine,
		logger:     logger,
		docHandler: docHandler,
		qHandler:   qHandler,
		admHandler: admHandler,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.POST("/upload", r.docHandler.Upload)
	r.engine.GET("/document/:id", r.docHandler.GetDocument)
	r.engine.GET("/documents", r.docHandler.ListDocuments)
	r.engine.DELETE("/document/:id", r.docHandler.DeleteDocument)

	r.engine.POST("/ask", r.qHandler.Ask)
	r.engine.POST("/search", r.qHandler.Search)

	r.engine.POST("/cleanup", r.admHandler.Cleanup)
	r.engine.GET("/health", r.admHandler.Health)
	r.engine.GET("/metrics", r.admHandler.Metrics)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) Run(addr string) error {
	r.logger.Info("starting HTTP server", zap.String("address", addr))
	return r.engine.Run(addr)
}
