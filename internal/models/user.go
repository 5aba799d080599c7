package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Operator is an API user of the management surface, not a Telegram account.
type Operator struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

// Account is a registered Telegram user on whose behalf watchers run. The
// API hash and session string are stored encrypted with the account data key.
type Account struct {
	ID               int64     `db:"id"`
	UserID           string    `db:"user_id"`
	Phone            string    `db:"phone"`
	APIID            int       `db:"api_id"`
	APIHashEncrypted string    `db:"api_hash_encrypted"`
	SessionEncrypted string    `db:"session_encrypted"`
	CreatedAt        time.Time `db:"created_at"`
}

// Claims defines the structure of the JWT claims.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}
