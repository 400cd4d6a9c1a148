package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// MinSecretLength is the shortest signing secret accepted.
	MinSecretLength = 32
	// DefaultTokenTTL applies when a token is issued without a positive lifetime.
	DefaultTokenTTL = 15 * time.Minute
)

var ErrWeakSecret = fmt.Errorf("signing secret must be at least %d bytes", MinSecretLength)

// TokenClaims represents the claims in a session token
type TokenClaims struct {
	jwt.RegisteredClaims
}

// TokenManager handles token operations
type TokenManager struct {
	secretKey []byte
	issuer    string
	now       func() time.Time
}

// TokenOption configures a TokenManager.
type TokenOption func(*TokenManager)

// WithClock replaces the wall clock used for issuing and validating tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		tm.now = now
	}
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secretKey, issuer string, opts ...TokenOption) (*TokenManager, error) {
	if len(secretKey) < MinSecretLength {
		return nil, ErrWeakSecret
	}

	tm := &TokenManager{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

// Issue signs a token for subject that expires after ttl. The returned expiry
// is the exact value encoded in the token.
func (tm *TokenManager) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("token subject is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := tm.now().UTC()
	expiresAt := jwt.NewNumericDate(now.Add(ttl))
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    tm.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: expiresAt,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt.Time.UTC(), nil
}

// Validate checks the token and returns its subject. Failures are always an
// *AuthError of kind Malformed, InvalidSignature or Expired.
func (tm *TokenManager) Validate(tokenString string) (string, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return "", newAuthError(KindMalformed, errors.New("token must have three segments"))
	}
	for _, p := range parts {
		if p == "" {
			return "", newAuthError(KindMalformed, errors.New("token has an empty segment"))
		}
	}
	for _, p := range parts[:2] {
		if _, err := base64.RawURLEncoding.DecodeString(p); err != nil {
			return "", newAuthError(KindMalformed, err)
		}
	}

	sig, err := base64.RawURLEncoding.Strict().DecodeString(parts[2])
	if err != nil {
		return "", newAuthError(KindInvalidSignature, err)
	}
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, tm.secretKey); err != nil {
		return "", newAuthError(KindInvalidSignature, err)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
		jwt.WithStrictDecoding(),
	}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}

	claims := &TokenClaims{}
	_, err = jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return tm.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", newAuthError(KindExpired, err)
		}
		return "", newAuthError(KindMalformed, err)
	}

	if claims.Subject == "" {
		return "", newAuthError(KindMalformed, errors.New("token has no subject"))
	}
	return claims.Subject, nil
}
