package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alphawatch/internal/provider"
	"alphawatch/internal/repository"
)

// GroupsHandler lists the Telegram dialogs a registered account can watch.
type GroupsHandler interface {
	UserGroups(c *gin.Context)
}

type groupsHandler struct {
	clients *provider.Factory
	logger  *zap.Logger
}

func NewGroupsHandler(clients *provider.Factory, logger *zap.Logger) GroupsHandler {
	return &groupsHandler{clients: clients, logger: logger}
}

func (h *groupsHandler) UserGroups(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id query parameter is required"})
		return
	}
	ctx := c.Request.Context()

	client, err := h.clients.TelegramFor(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not registered, call /init first"})
			return
		}
		h.logger.Error("Failed to build provider client", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reach Telegram"})
		return
	}
	if err := client.Connect(ctx); err != nil {
		h.logger.Error("Failed to connect provider client", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to connect to Telegram: " + err.Error()})
		return
	}
	defer client.Disconnect()

	groups, err := client.Groups(ctx)
	if err != nil {
		h.logger.Error("Failed to list groups", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to list groups"})
		return
	}
	if groups == nil {
		groups = []provider.Group{}
	}

	c.JSON(http.StatusOK, gin.H{"groups": groups})
}
