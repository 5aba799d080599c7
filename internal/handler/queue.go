package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alphawatch/internal/batcher"
)

// QueueHandler exposes the in-flight message windows for inspection.
type QueueHandler interface {
	GetQueue(c *gin.Context)
}

type queueHandler struct {
	batcher *batcher.Batcher
}

func NewQueueHandler(b *batcher.Batcher) QueueHandler {
	return &queueHandler{batcher: b}
}

func (h *queueHandler) GetQueue(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"queue": h.batcher.Snapshot()})
}
