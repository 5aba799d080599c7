package provider

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"
)

var (
	ErrLoginNotPending = errors.New("no login flow pending for user")
	ErrLoginTimeout    = errors.New("timed out waiting for sign-in to complete")
)

const signInTimeout = 60 * time.Second

// LoginManager runs two-phase OTP sign-ins: Begin sends the code, Complete
// feeds it back into the waiting auth flow and returns the session string.
// Pending flows are held in memory per user id, as the exchange spans two
// HTTP requests.
type LoginManager struct {
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingLogin
}

type pendingLogin struct {
	phone   string
	codeCh  chan string
	result  chan error
	cancel  context.CancelFunc
	session *session.StorageMemory
}

func NewLoginManager(logger *zap.Logger) *LoginManager {
	return &LoginManager{
		logger:  logger,
		pending: make(map[string]*pendingLogin),
	}
}

// Begin starts a sign-in flow for the user: a fresh client with an in-memory
// session connects and requests an OTP for the phone. Any previous pending
// flow for the user is cancelled first.
func (m *LoginManager) Begin(userID, phone string, apiID int, apiHash string) {
	store := &session.StorageMemory{}
	client := telegram.NewClient(apiID, apiHash, telegram.Options{
		SessionStorage: store,
		Logger:         m.logger.Named("login"),
	})

	runCtx, cancel := context.WithCancel(context.Background())
	p := &pendingLogin{
		phone:   phone,
		codeCh:  make(chan string, 1),
		result:  make(chan error, 1),
		cancel:  cancel,
		session: store,
	}

	m.mu.Lock()
	if prev, ok := m.pending[userID]; ok {
		prev.cancel()
	}
	m.pending[userID] = p
	m.mu.Unlock()

	go func() {
		err := client.Run(runCtx, func(ctx context.Context) error {
			flow := auth.NewFlow(
				auth.Constant(phone, "", auth.CodeAuthenticatorFunc(
					func(ctx context.Context, _ *tg.AuthSentCode) (string, error) {
						select {
						case code := <-p.codeCh:
							return strings.TrimSpace(code), nil
						case <-ctx.Done():
							return "", ctx.Err()
						}
					})),
				auth.SendCodeOptions{},
			)
			return flow.Run(ctx, client.Auth())
		})
		p.result <- err
	}()
}

// Complete feeds the OTP into the pending flow and, on success, returns the
// raw session bytes for persistence. The pending entry is dropped either way.
func (m *LoginManager) Complete(userID, code string) ([]byte, error) {
	m.mu.Lock()
	p, ok := m.pending[userID]
	delete(m.pending, userID)
	m.mu.Unlock()

	if !ok {
		return nil, ErrLoginNotPending
	}
	defer p.cancel()

	select {
	case p.codeCh <- code:
	default:
		// a code was already submitted; the flow result below decides
	}

	select {
	case err := <-p.result:
		if err != nil {
			return nil, err
		}
	case <-time.After(signInTimeout):
		return nil, ErrLoginTimeout
	}

	return p.session.LoadSession(context.Background())
}

// Cancel aborts a pending flow if one exists.
func (m *LoginManager) Cancel(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pending[userID]; ok {
		p.cancel()
		delete(m.pending, userID)
	}
}
