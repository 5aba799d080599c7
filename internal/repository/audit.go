package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// AuditEntry is one recorded pipeline step.
type AuditEntry struct {
	ID        int64           `db:"id" json:"id"`
	Timestamp time.Time       `db:"timestamp" json:"timestamp"`
	Stage     string          `db:"stage" json:"action"`
	Input     json.RawMessage `db:"input" json:"input"`
	Output    json.RawMessage `db:"output" json:"output"`
}

// AuditRepository is the append-only record of pipeline steps. Record is
// best-effort: callers log failures and continue.
type AuditRepository interface {
	Record(ctx context.Context, stage string, input, output any) error
	ListRecent(ctx context.Context, limit int) ([]AuditEntry, error)
}

type auditRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewAuditRepository(db *sqlx.DB, logger *zap.Logger) AuditRepository {
	return &auditRepository{db: db, logger: logger}
}

func (r *auditRepository) Record(ctx context.Context, stage string, input, output any) error {
	inputJSON, err := marshalLoose(input)
	if err != nil {
		return err
	}
	outputJSON, err := marshalLoose(output)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_log (stage, input, output) VALUES ($1, $2, $3)`
	_, err = r.db.ExecContext(ctx, query, stage, inputJSON, outputJSON)
	return err
}

func (r *auditRepository) ListRecent(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []AuditEntry
	query := `SELECT id, timestamp, stage, input, output FROM audit_log ORDER BY id DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, err
	}
	return entries, nil
}

// marshalLoose never fails the caller over an unserializable value; the audit
// trail degrades to a quoted string instead.
func marshalLoose(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return json.Marshal(&struct {
			Unserializable string `json:"unserializable"`
		}{Unserializable: err.Error()})
	}
	return data, nil
}
