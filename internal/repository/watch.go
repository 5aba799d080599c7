package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"alphawatch/internal/models"
)

// WatchRepository is the durable registry of watch targets.
type WatchRepository interface {
	ListAll(ctx context.Context) ([]models.WatchTarget, error)
	ListByUser(ctx context.Context, userID string) ([]models.WatchTarget, error)
	Upsert(ctx context.Context, target *models.WatchTarget) error
	Delete(ctx context.Context, userID string, sourceID int64, subChannelID *int64) error
	// ListAnchorIDs returns the reply-anchor ids a message must reference to
	// be attributed to one of the user's watched sub-channels. Whole-group
	// targets contribute their group id.
	ListAnchorIDs(ctx context.Context, userID string) ([]int64, error)
	// GetByAnchor resolves the watch target a reply anchor belongs to.
	GetByAnchor(ctx context.Context, userID string, anchorID int64) (*models.WatchTarget, error)
}

var ErrWatchNotFound = errors.New("watch target not found")

type watchRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewWatchRepository(db *sqlx.DB, logger *zap.Logger) WatchRepository {
	return &watchRepository{db: db, logger: logger}
}

const watchColumns = `id, user_id, source_id, source_name, source_username, is_channel, is_forum, sub_channel_id, sub_channel_name, webhook_url, created_at`

func (r *watchRepository) ListAll(ctx context.Context) ([]models.WatchTarget, error) {
	var targets []models.WatchTarget
	query := `SELECT ` + watchColumns + ` FROM watch_targets ORDER BY id`
	if err := r.db.SelectContext(ctx, &targets, query); err != nil {
		return nil, err
	}
	return targets, nil
}

func (r *watchRepository) ListByUser(ctx context.Context, userID string) ([]models.WatchTarget, error) {
	var targets []models.WatchTarget
	query := `SELECT ` + watchColumns + ` FROM watch_targets WHERE user_id = $1 ORDER BY id`
	if err := r.db.SelectContext(ctx, &targets, query, userID); err != nil {
		return nil, err
	}
	return targets, nil
}

func (r *watchRepository) Upsert(ctx context.Context, target *models.WatchTarget) error {
	query := `
		INSERT INTO watch_targets (user_id, source_id, source_name, source_username, is_channel, is_forum, sub_channel_id, sub_channel_name, webhook_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, source_id, COALESCE(sub_channel_id, 0)) DO UPDATE SET
			source_name = EXCLUDED.source_name,
			source_username = EXCLUDED.source_username,
			is_channel = EXCLUDED.is_channel,
			is_forum = EXCLUDED.is_forum,
			sub_channel_name = EXCLUDED.sub_channel_name,
			webhook_url = EXCLUDED.webhook_url
		RETURNING id, created_at`
	return r.db.QueryRowxContext(ctx, query,
		target.UserID, target.SourceID, target.SourceName, target.SourceUsername,
		target.IsChannel, target.IsForum, target.SubChannelID, target.SubChannelName,
		target.WebhookURL,
	).Scan(&target.ID, &target.CreatedAt)
}

func (r *watchRepository) Delete(ctx context.Context, userID string, sourceID int64, subChannelID *int64) error {
	var res sql.Result
	var err error
	if subChannelID != nil {
		query := `DELETE FROM watch_targets WHERE user_id = $1 AND source_id = $2 AND sub_channel_id = $3`
		res, err = r.db.ExecContext(ctx, query, userID, sourceID, *subChannelID)
	} else {
		query := `DELETE FROM watch_targets WHERE user_id = $1 AND source_id = $2 AND sub_channel_id IS NULL`
		res, err = r.db.ExecContext(ctx, query, userID, sourceID)
	}
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrWatchNotFound
	}
	return nil
}

func (r *watchRepository) ListAnchorIDs(ctx context.Context, userID string) ([]int64, error) {
	var ids []int64
	query := `SELECT COALESCE(sub_channel_id, source_id) FROM watch_targets WHERE user_id = $1`
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *watchRepository) GetByAnchor(ctx context.Context, userID string, anchorID int64) (*models.WatchTarget, error) {
	var target models.WatchTarget
	query := `SELECT ` + watchColumns + ` FROM watch_targets WHERE user_id = $1 AND COALESCE(sub_channel_id, source_id) = $2`
	err := r.db.GetContext(ctx, &target, query, userID, anchorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No matching watch, caller drops the event
		}
		return nil, err
	}
	return &target, nil
}
