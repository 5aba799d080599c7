package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alphawatch/internal/models"
	"alphawatch/internal/watcher"
)

type fakeWatchRepo struct {
	targets []models.WatchTarget
	deleted []models.WatchKey
}

func (r *fakeWatchRepo) ListAll(_ context.Context) ([]models.WatchTarget, error) {
	return r.targets, nil
}

func (r *fakeWatchRepo) ListByUser(_ context.Context, userID string) ([]models.WatchTarget, error) {
	var out []models.WatchTarget
	for _, t := range r.targets {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeWatchRepo) Upsert(_ context.Context, target *models.WatchTarget) error {
	r.targets = append(r.targets, *target)
	return nil
}

func (r *fakeWatchRepo) Delete(_ context.Context, userID string, sourceID int64, subChannelID *int64) error {
	key := models.WatchKey{UserID: userID, SourceID: sourceID}
	if subChannelID != nil {
		key.SubChannelID = *subChannelID
	}
	r.deleted = append(r.deleted, key)
	return nil
}

func (r *fakeWatchRepo) ListAnchorIDs(_ context.Context, _ string) ([]int64, error) {
	return nil, nil
}

func (r *fakeWatchRepo) GetByAnchor(_ context.Context, _ string, _ int64) (*models.WatchTarget, error) {
	return nil, nil
}

func topicTarget(userID string, sourceID int64, sourceName string, topicID int64, topicName string) models.WatchTarget {
	return models.WatchTarget{
		UserID:         userID,
		SourceID:       sourceID,
		SourceName:     sourceName,
		IsForum:        true,
		SubChannelID:   &topicID,
		SubChannelName: &topicName,
	}
}

func watchRouter(h WatchHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/unwatch-group", h.Unwatch)
	r.GET("/watched-groups", h.List)
	return r
}

func TestListWatchedGroups(t *testing.T) {
	repo := &fakeWatchRepo{targets: []models.WatchTarget{
		topicTarget("u1", 100, "alpha chat", 7, "calls"),
		topicTarget("u2", 200, "other chat", 9, "news"),
	}}
	sup := watcher.NewSupervisor(zap.NewNop())
	h := NewWatchHandler(repo, nil, sup, nil, zap.NewNop())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/watched-groups?user_id=u1", nil)
	watchRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Watched []models.WatchTarget `json:"watched"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Watched, 1)
	assert.Equal(t, "alpha chat", resp.Watched[0].SourceName)
}

func TestListRequiresUserID(t *testing.T) {
	h := NewWatchHandler(&fakeWatchRepo{}, nil, watcher.NewSupervisor(zap.NewNop()), nil, zap.NewNop())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/watched-groups", nil)
	watchRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnwatchStopsAndDeletes(t *testing.T) {
	target := topicTarget("u1", 100, "alpha chat", 7, "calls")
	repo := &fakeWatchRepo{targets: []models.WatchTarget{target}}
	sup := watcher.NewSupervisor(zap.NewNop())
	running := sup.Start(target.Key(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	h := NewWatchHandler(repo, nil, sup, nil, zap.NewNop())

	body, _ := json.Marshal(UnwatchRequest{
		UserID:    "u1",
		GroupName: "alpha chat",
		TopicName: strPtr("calls"),
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/unwatch-group", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	watchRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, sup.Count())
	<-running.Done()
	require.Len(t, repo.deleted, 1)
	assert.Equal(t, target.Key(), repo.deleted[0])
}

func TestUnwatchUnknownTarget(t *testing.T) {
	h := NewWatchHandler(&fakeWatchRepo{}, nil, watcher.NewSupervisor(zap.NewNop()), nil, zap.NewNop())

	body, _ := json.Marshal(UnwatchRequest{UserID: "u1", GroupName: "nope"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/unwatch-group", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	watchRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func strPtr(s string) *string { return &s }
