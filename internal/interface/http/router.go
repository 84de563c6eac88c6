package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanqian/faqbot/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(handler.logger),
	)

	router.GET("/healthz", handler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1", rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger))
	{
		api.POST("/chat", handler.Chat)
		api.GET("/faq/trending", handler.TrendingFAQ)
		api.POST("/admin/login", handler.Login)

		admin := api.Group("/admin", authMiddleware(handler.authSvc))
		{
			admin.GET("/faq", handler.ListFAQ)
			admin.PUT("/faq", handler.SaveFAQ)
			admin.DELETE("/faq", handler.DeleteFAQ)
			admin.POST("/faq/rebuild", handler.RebuildFAQ)
			admin.POST("/faq/import", handler.ImportFAQ)
			admin.POST("/faq/generate", handler.GenerateFAQ)
		}
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, handler.logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
