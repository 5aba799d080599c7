package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"

	"alphawatch/internal/models"
	"alphawatch/internal/repository"
)

var (
	ErrOperatorAlreadyExists = errors.New("operator already exists")
	ErrInvalidCredentials    = errors.New("invalid credentials")
)

const tokenTTL = 24 * time.Hour

// AuthService registers operators and issues JWT tokens for the API.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*models.Operator, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error)
}

type authService struct {
	repo      repository.OperatorRepository
	jwtSecret []byte
	logger    *zap.Logger
}

func NewAuthService(repo repository.OperatorRepository, jwtSecret []byte, logger *zap.Logger) AuthService {
	return &authService{
		repo:      repo,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

func (s *authService) Register(ctx context.Context, username, password string) (*models.Operator, error) {
	existing, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		s.logger.Error("Failed to look up operator", zap.Error(err))
		return nil, fmt.Errorf("failed to check existing operators: %w", err)
	}
	if existing != nil {
		return nil, ErrOperatorAlreadyExists
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	operator := &models.Operator{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         "operator",
	}
	if err := s.repo.Create(ctx, operator); err != nil {
		s.logger.Error("Failed to create operator", zap.Error(err))
		return nil, fmt.Errorf("failed to create operator: %w", err)
	}

	s.logger.Info("Operator registered", zap.String("username", username))
	return operator, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	operator, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		s.logger.Error("Failed to look up operator", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("failed to retrieve operator: %w", err)
	}
	if operator == nil || !verifyPassword(operator.PasswordHash, password) {
		return "", time.Time{}, ErrInvalidCredentials
	}

	expirationTime := time.Now().Add(tokenTTL)
	claims := &models.Claims{
		Username: operator.Username,
		Role:     operator.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		s.logger.Error("Failed to generate JWT token", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("Operator logged in", zap.String("username", operator.Username))
	return tokenString, expirationTime, nil
}

// hashPassword hashes the password with Argon2id. The salt and parameters are
// encoded into the result, e.g. $argon2id$v=19$m=65536,t=1,p=4$SALT$HASH.
func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)

	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, 64*1024, 1, 4, encodedSalt, encodedHash), nil
}

// verifyPassword re-hashes the password with the parameters and salt encoded
// in the stored hash and compares in constant time.
func verifyPassword(encoded, password string) bool {
	sections := strings.Split(strings.TrimPrefix(encoded, "$"), "$")
	if len(sections) != 5 || sections[0] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(sections[1], "v=%d", &version); err != nil {
		return false
	}

	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(sections[2], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(sections[3])
	if err != nil {
		return false
	}
	hash, err := base64.RawStdEncoding.DecodeString(sections[4])
	if err != nil {
		return false
	}

	comparison := argon2.IDKey([]byte(password), salt, t, m, p, uint32(len(hash)))
	return subtle.ConstantTimeCompare(comparison, hash) == 1
}
