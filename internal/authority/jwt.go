package authority

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lineacaptura/internal/platform/config"
)

// MinTokenTTL is the shortest lifetime a minted token may have.
const MinTokenTTL = 60 * time.Second

// TokenSigner mints short-lived HS256 tokens for the authorization header.
type TokenSigner struct {
	secret   []byte
	audience string
	issuer   string
	subject  string
	ttl      time.Duration
}

func NewTokenSigner(cfg config.JWTConfig) *TokenSigner {
	ttl := cfg.TTL
	if ttl < MinTokenTTL {
		ttl = MinTokenTTL
	}
	return &TokenSigner{
		secret:   []byte(cfg.Secret),
		audience: cfg.Audience,
		issuer:   cfg.Issuer,
		subject:  cfg.Subject,
		ttl:      ttl,
	}
}

// Sign returns a token issued at now with the given token id.
// iss and sub are only present when configured.
func (s *TokenSigner) Sign(now time.Time, tokenID string) (string, error) {
	claims := jwt.MapClaims{
		"aud": s.audience,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
		"jti": tokenID,
	}
	if s.issuer != "" {
		claims["iss"] = s.issuer
	}
	if s.subject != "" {
		claims["sub"] = s.subject
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
