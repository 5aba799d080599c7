package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alphawatch/internal/models"
	"alphawatch/internal/provider"
	"alphawatch/internal/repository"
	"alphawatch/internal/watcher"
)

// ListenerBinder builds the listening task for a watch target.
type ListenerBinder func(target models.WatchTarget) watcher.ListenerFactory

// WatchHandler manages watch targets and their live watchers.
type WatchHandler interface {
	Watch(c *gin.Context)
	Unwatch(c *gin.Context)
	List(c *gin.Context)
}

type watchHandler struct {
	watches    repository.WatchRepository
	clients    *provider.Factory
	supervisor *watcher.Supervisor
	bind       ListenerBinder
	logger     *zap.Logger
}

func NewWatchHandler(
	watches repository.WatchRepository,
	clients *provider.Factory,
	supervisor *watcher.Supervisor,
	bind ListenerBinder,
	logger *zap.Logger,
) WatchHandler {
	return &watchHandler{
		watches:    watches,
		clients:    clients,
		supervisor: supervisor,
		bind:       bind,
		logger:     logger,
	}
}

type WatchRequest struct {
	UserID     string  `json:"user_id" binding:"required"`
	GroupName  string  `json:"group_name" binding:"required"`
	TopicName  *string `json:"topic_name"`
	WebhookURL *string `json:"webhook_url"`
}

type UnwatchRequest struct {
	UserID    string  `json:"user_id" binding:"required"`
	GroupName string  `json:"group_name" binding:"required"`
	TopicName *string `json:"topic_name"`
}

func (h *watchHandler) Watch(c *gin.Context) {
	var req WatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	client, err := h.clients.TelegramFor(ctx, req.UserID)
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

	group, err := client.ResolveGroup(ctx, req.GroupName)
	if err != nil {
		if errors.Is(err, provider.ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Group not found: " + req.GroupName})
			return
		}
		h.logger.Error("Failed to resolve group", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to list groups"})
		return
	}

	target := models.WatchTarget{
		UserID:         req.UserID,
		SourceID:       group.ID,
		SourceName:     group.Title,
		SourceUsername: group.Username,
		IsChannel:      group.Type == "channel",
		IsForum:        group.IsForum,
		WebhookURL:     req.WebhookURL,
	}

	if req.TopicName != nil && *req.TopicName != "" {
		if !group.IsForum {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Group has no topics: " + group.Title})
			return
		}
		topic, err := client.ResolveTopic(ctx, *group, *req.TopicName)
		if err != nil {
			if errors.Is(err, provider.ErrTopicNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Topic not found: " + *req.TopicName})
				return
			}
			h.logger.Error("Failed to resolve topic", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to list topics"})
			return
		}
		target.SubChannelID = &topic.ID
		target.SubChannelName = &topic.Title
	}

	if err := h.watches.Upsert(ctx, &target); err != nil {
		h.logger.Error("Failed to persist watch target", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save watch"})
		return
	}

	h.supervisor.Start(target.Key(), h.bind(target))

	c.JSON(http.StatusOK, gin.H{
		"message": "Watching",
		"target":  target,
	})
}

func (h *watchHandler) Unwatch(c *gin.Context) {
	var req UnwatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	target, err := h.findTarget(c, req)
	if err != nil {
		return // response already written
	}

	h.supervisor.Stop(target.Key())

	if err := h.watches.Delete(ctx, target.UserID, target.SourceID, target.SubChannelID); err != nil {
		if errors.Is(err, repository.ErrWatchNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Watch not found"})
			return
		}
		h.logger.Error("Failed to delete watch target", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove watch"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Stopped watching", "key": target.Key().String()})
}

func (h *watchHandler) List(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id query parameter is required"})
		return
	}

	targets, err := h.watches.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list watch targets", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list watches"})
		return
	}
	if targets == nil {
		targets = []models.WatchTarget{}
	}

	c.JSON(http.StatusOK, gin.H{"watched": targets})
}

// findTarget resolves an unwatch request to a stored target by group name and
// optional topic name. Writes the error response itself on failure.
func (h *watchHandler) findTarget(c *gin.Context, req UnwatchRequest) (*models.WatchTarget, error) {
	targets, err := h.watches.ListByUser(c.Request.Context(), req.UserID)
	if err != nil {
		h.logger.Error("Failed to list watch targets", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list watches"})
		return nil, err
	}

	for i := range targets {
		t := &targets[i]
		if !strings.EqualFold(t.SourceName, req.GroupName) {
			continue
		}
		switch {
		case req.TopicName == nil || *req.TopicName == "":
			if t.SubChannelID == nil {
				return t, nil
			}
		case t.SubChannelName != nil && strings.EqualFold(*t.SubChannelName, *req.TopicName):
			return t, nil
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "Watch not found"})
	return nil, repository.ErrWatchNotFound
}
