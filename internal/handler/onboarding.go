package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alphawatch/internal/crypto"
	"alphawatch/internal/models"
	"alphawatch/internal/provider"
	"alphawatch/internal/repository"
)

// OnboardingHandler registers Telegram accounts through the two-phase OTP
// sign-in: Init sends the code, Verify completes the flow and persists the
// encrypted session.
type OnboardingHandler interface {
	Init(c *gin.Context)
	Verify(c *gin.Context)
}

type onboardingHandler struct {
	accounts repository.AccountRepository
	logins   *provider.LoginManager
	keys     *crypto.KeyManager
	logger   *zap.Logger
}

func NewOnboardingHandler(
	accounts repository.AccountRepository,
	logins *provider.LoginManager,
	keys *crypto.KeyManager,
	logger *zap.Logger,
) OnboardingHandler {
	return &onboardingHandler{accounts: accounts, logins: logins, keys: keys, logger: logger}
}

type InitRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	APIID   int    `json:"api_id" binding:"required"`
	APIHash string `json:"api_hash" binding:"required"`
}

type VerifyRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

func (h *onboardingHandler) Init(c *gin.Context) {
	var req InitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	apiHashEncrypted, err := h.keys.EncryptSecret(req.APIHash)
	if err != nil {
		h.logger.Error("Failed to encrypt API hash", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store credentials"})
		return
	}

	account := &models.Account{
		UserID:           req.UserID,
		Phone:            req.Phone,
		APIID:            req.APIID,
		APIHashEncrypted: apiHashEncrypted,
	}
	if err := h.accounts.Upsert(c.Request.Context(), account); err != nil {
		h.logger.Error("Failed to upsert account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store credentials"})
		return
	}

	h.logins.Begin(req.UserID, req.Phone, req.APIID, req.APIHash)

	c.JSON(http.StatusOK, gin.H{
		"message": "Verification code sent",
		"user_id": req.UserID,
	})
}

func (h *onboardingHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionData, err := h.logins.Complete(req.UserID, req.Code)
	if err != nil {
		if errors.Is(err, provider.ErrLoginNotPending) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No sign-in pending for this user, call /init first"})
			return
		}
		h.logger.Warn("Sign-in failed", zap.String("user_id", req.UserID), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign-in failed: " + err.Error()})
		return
	}

	sessionEncrypted, err := h.keys.EncryptSecret(string(sessionData))
	if err != nil {
		h.logger.Error("Failed to encrypt session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store session"})
		return
	}
	if err := h.accounts.UpdateSession(c.Request.Context(), req.UserID, sessionEncrypted); err != nil {
		h.logger.Error("Failed to persist session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Account verified",
		"user_id": req.UserID,
	})
}
