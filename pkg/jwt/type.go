package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// MinSecretKeyLen is the shortest HS256 key accepted.
	MinSecretKeyLen = 32

	DefaultTTL = 24 * time.Hour
)

// Config holds JWT configuration
type Config struct {
	SecretKey string
	Issuer    string
	TTL       time.Duration
}

// Claims represents the JWT claims structure
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string { return c.Subject }

type managerImpl struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
}
