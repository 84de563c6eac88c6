package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/faqbot/internal/domain/auth"
	"github.com/yanqian/faqbot/internal/domain/faq"
)

const maxImportBytes = 10 << 20

type generateRequest struct {
	Count int `json:"count"`
}

// Login exchanges admin credentials for a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	resp, err := h.authSvc.Login(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromAppError(err, "login_failed"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListFAQ returns every row of the FAQ table.
func (h *Handler) ListFAQ(c *gin.Context) {
	entries, err := h.faqSvc.ListEntries(c.Request.Context())
	if err != nil {
		abortWithError(c, fromAppError(err, "faq_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// SaveFAQ inserts or overwrites one entry.
func (h *Handler) SaveFAQ(c *gin.Context) {
	var entry faq.Entry
	if err := c.ShouldBindJSON(&entry); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	if err := h.faqSvc.SaveEntry(c.Request.Context(), entry); err != nil {
		abortWithError(c, fromAppError(err, "faq_failed"))
		return
	}
	h.logger.Info("faq entry saved", "admin", adminName(c), "question", entry.Question)
	c.JSON(http.StatusOK, gin.H{"saved": true})
}

// DeleteFAQ removes the entry named by the question query parameter.
func (h *Handler) DeleteFAQ(c *gin.Context) {
	question := c.Query("question")
	deleted, err := h.faqSvc.DeleteEntry(c.Request.Context(), question)
	if err != nil {
		abortWithError(c, fromAppError(err, "faq_failed"))
		return
	}
	if !deleted {
		abortWithError(c, NewHTTPError(http.StatusNotFound, "not_found", "faq entry not found", nil))
		return
	}
	h.logger.Info("faq entry deleted", "admin", adminName(c), "question", question)
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// RebuildFAQ reloads the table and publishes a fresh index.
func (h *Handler) RebuildFAQ(c *gin.Context) {
	report, err := h.faqSvc.Rebuild(c.Request.Context())
	if err != nil {
		abortWithError(c, fromAppError(err, "rebuild_failed"))
		return
	}
	c.JSON(http.StatusOK, report)
}

// ImportFAQ ingests a question,answer CSV sent as the raw body or a multipart "file".
func (h *Handler) ImportFAQ(c *gin.Context) {
	body, err := importBody(c)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	defer body.Close()

	report, err := h.faqSvc.Import(c.Request.Context(), io.LimitReader(body, maxImportBytes))
	if err != nil {
		abortWithError(c, fromAppError(err, "import_failed"))
		return
	}
	h.logger.Info("faq imported", "admin", adminName(c), "imported", report.Imported, "skipped", report.Skipped)
	c.JSON(http.StatusOK, report)
}

// GenerateFAQ drafts synthetic entries from the document store.
func (h *Handler) GenerateFAQ(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	report, err := h.faqSvc.Generate(c.Request.Context(), req.Count)
	if err != nil {
		abortWithError(c, fromAppError(err, "generate_failed"))
		return
	}
	c.JSON(http.StatusOK, report)
}

func importBody(c *gin.Context) (io.ReadCloser, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return nil, err
		}
		return fileHeader.Open()
	}
	return c.Request.Body, nil
}

func adminName(c *gin.Context) string {
	claims, ok := getClaims(c)
	if !ok {
		return ""
	}
	return claims.Username
}
