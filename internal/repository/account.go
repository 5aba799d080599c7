package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"alphawatch/internal/models"
)

var ErrAccountNotFound = errors.New("account not registered")

// AccountRepository stores registered Telegram accounts and their encrypted
// session material.
type AccountRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Account, error)
	Upsert(ctx context.Context, account *models.Account) error
	UpdateSession(ctx context.Context, userID, sessionEncrypted string) error
	ListAll(ctx context.Context) ([]models.Account, error)
}

type accountRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewAccountRepository(db *sqlx.DB, logger *zap.Logger) AccountRepository {
	return &accountRepository{db: db, logger: logger}
}

func (r *accountRepository) GetByUserID(ctx context.Context, userID string) (*models.Account, error) {
	var account models.Account
	query := `SELECT id, user_id, phone, api_id, api_hash_encrypted, session_encrypted, created_at FROM accounts WHERE user_id = $1`
	err := r.db.GetContext(ctx, &account, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) Upsert(ctx context.Context, account *models.Account) error {
	query := `INSERT INTO accounts (user_id, phone, api_id, api_hash_encrypted, session_encrypted)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (user_id) DO UPDATE SET
	              phone = EXCLUDED.phone,
	              api_id = EXCLUDED.api_id,
	              api_hash_encrypted = EXCLUDED.api_hash_encrypted
	          RETURNING id, created_at`
	return r.db.QueryRowxContext(ctx, query,
		account.UserID, account.Phone, account.APIID, account.APIHashEncrypted, account.SessionEncrypted,
	).Scan(&account.ID, &account.CreatedAt)
}

func (r *accountRepository) UpdateSession(ctx context.Context, userID, sessionEncrypted string) error {
	query := `UPDATE accounts SET session_encrypted = $1 WHERE user_id = $2`
	res, err := r.db.ExecContext(ctx, query, sessionEncrypted, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *accountRepository) ListAll(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	query := `SELECT id, user_id, phone, api_id, api_hash_encrypted, session_encrypted, created_at FROM accounts ORDER BY id`
	if err := r.db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, err
	}
	return accounts, nil
}
