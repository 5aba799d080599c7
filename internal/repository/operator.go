package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"alphawatch/internal/models"
)

// OperatorRepository stores API users of the management surface.
type OperatorRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.Operator, error)
	Create(ctx context.Context, operator *models.Operator) error
	Count(ctx context.Context) (int, error)
}

type operatorRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewOperatorRepository(db *sqlx.DB, logger *zap.Logger) OperatorRepository {
	return &operatorRepository{db: db, logger: logger}
}

func (r *operatorRepository) GetByUsername(ctx context.Context, username string) (*models.Operator, error) {
	var operator models.Operator
	query := `SELECT id, username, password_hash, role, created_at FROM operators WHERE username = $1`
	err := r.db.GetContext(ctx, &operator, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &operator, nil
}

func (r *operatorRepository) Create(ctx context.Context, operator *models.Operator) error {
	query := `INSERT INTO operators (username, password_hash, role) VALUES ($1, $2, $3) RETURNING id, created_at`
	return r.db.QueryRowxContext(ctx, query,
		operator.Username, operator.PasswordHash, operator.Role,
	).Scan(&operator.ID, &operator.CreatedAt)
}

func (r *operatorRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM operators`); err != nil {
		return 0, err
	}
	return count, nil
}
