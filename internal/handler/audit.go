package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alphawatch/internal/repository"
)

const defaultAuditLimit = 100

// AuditHandler serves the decision audit trail.
type AuditHandler interface {
	ListRecent(c *gin.Context)
}

type auditHandler struct {
	audit  repository.AuditRepository
	logger *zap.Logger
}

func NewAuditHandler(audit repository.AuditRepository, logger *zap.Logger) AuditHandler {
	return &auditHandler{audit: audit, logger: logger}
}

func (h *auditHandler) ListRecent(c *gin.Context) {
	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	entries, err := h.audit.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list audit entries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list audit entries"})
		return
	}
	if entries == nil {
		entries = []repository.AuditEntry{}
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
