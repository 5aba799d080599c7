package provider

import (
	"context"
	"errors"

	"github.com/gotd/td/session"
	"go.uber.org/zap"

	"alphawatch/internal/crypto"
	"alphawatch/internal/repository"
)

// accountSession stores gotd session material in the accounts table,
// encrypted with the master key. Implements session.Storage.
type accountSession struct {
	userID   string
	accounts repository.AccountRepository
	keys     *crypto.KeyManager
	logger   *zap.Logger
}

func (s *accountSession) LoadSession(ctx context.Context) ([]byte, error) {
	account, err := s.accounts.GetByUserID(ctx, s.userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}
	if account.SessionEncrypted == "" {
		return nil, session.ErrNotFound
	}

	data, err := s.keys.DecryptSecret(account.SessionEncrypted)
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

func (s *accountSession) StoreSession(ctx context.Context, data []byte) error {
	encrypted, err := s.keys.EncryptSecret(string(data))
	if err != nil {
		return err
	}
	return s.accounts.UpdateSession(ctx, s.userID, encrypted)
}

// Factory builds provider clients for registered accounts.
type Factory struct {
	accounts repository.AccountRepository
	keys     *crypto.KeyManager
	logger   *zap.Logger
}

func NewFactory(accounts repository.AccountRepository, keys *crypto.KeyManager, logger *zap.Logger) *Factory {
	return &Factory{accounts: accounts, keys: keys, logger: logger}
}

// ClientFor builds a provider client bound to the user's encrypted session.
func (f *Factory) ClientFor(ctx context.Context, userID string) (Client, error) {
	return f.TelegramFor(ctx, userID)
}

// TelegramFor is ClientFor with the concrete type, for callers that need the
// resolution surface (group and topic lookup).
func (f *Factory) TelegramFor(ctx context.Context, userID string) (*Telegram, error) {
	account, err := f.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	apiHash, err := f.keys.DecryptSecret(account.APIHashEncrypted)
	if err != nil {
		return nil, err
	}

	store := &accountSession{
		userID:   userID,
		accounts: f.accounts,
		keys:     f.keys,
		logger:   f.logger,
	}
	return NewTelegram(account.APIID, apiHash, store, f.logger.With(zap.String("user_id", userID))), nil
}
