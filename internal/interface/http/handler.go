package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/faqbot/internal/domain/auth"
	"github.com/yanqian/faqbot/internal/domain/faq"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	faqSvc  faq.Service
	authSvc auth.Service
	logger  *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(faqSvc faq.Service, authSvc auth.Service, logger *slog.Logger) *Handler {
	return &Handler{
		faqSvc:  faqSvc,
		authSvc: authSvc,
		logger:  logger.With("component", "http.handler"),
	}
}

// Chat answers one question through the model selector.
func (h *Handler) Chat(c *gin.Context) {
	var req faq.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.faqSvc.Chat(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromAppError(err, "chat_failed"))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// TrendingFAQ returns the most asked questions.
func (h *Handler) TrendingFAQ(c *gin.Context) {
	items, err := h.faqSvc.Trending(c.Request.Context())
	if err != nil {
		abortWithError(c, fromAppError(err, "faq_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": items})
}

// Health reports liveness plus the size of the published index.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"index":  h.faqSvc.Stats(),
	})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
