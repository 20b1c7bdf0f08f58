// Package auth provides password hashing, JWT issuance/verification and the
// request identity middleware for the gateway.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. signup/login: the service verifies credentials and calls TokenService.Issue
//  2. the client sends the token back as "Authorization: Bearer <jwt>"
//  3. Identify middleware verifies it and stores an Identity in the request
//     context, or stores nothing if the token is missing or invalid
//  4. operations that need a user read IdentityFromContext and fail with
//     Unauthenticated when it is absent
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"userId":"...","email":"...","sub":"...","iat":...,"exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// Claims are signed, not encrypted: anyone holding a token can read them.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is written to and required in the "iss" claim.
const Issuer = "auth-gateway"

// MinSecretLength is the shortest signing secret NewTokenService accepts.
const MinSecretLength = 16

// ErrInvalidToken wraps every verification failure: malformed input, bad
// signature, wrong algorithm or issuer, expiry.
var ErrInvalidToken = errors.New("auth: invalid token")

// Identity is the authenticated principal carried by a token.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Claims is the JWT payload.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Identity returns the principal encoded in the claims.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email}
}

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret used to sign and verify tokens. The secret is
// fixed for the lifetime of the service; TokenService is safe for
// concurrent use.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret.
// Example: APP_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: signing secret must be at least %d characters", MinSecretLength)
	}
	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

// Issue creates and signs a token for id that expires after ttl.
//
// Signing algorithm: HS256 (HMAC-SHA256). Symmetric, so the same secret
// signs and verifies.
func (s *TokenService) Issue(id Identity, ttl time.Duration) (string, error) {
	if id.UserID == "" {
		return "", errors.New("auth: cannot issue a token without a user id")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("auth: token ttl must be positive, got %s", ttl)
	}

	now := s.now()
	c := Claims{
		UserID: id.UserID,
		Email:  id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and validates a token and returns its claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Algorithm is HS256 (prevents "alg: none" and RS/HS confusion)
//   - Signature is valid
//   - "exp" is present and in the future
//   - Issuer matches
//
// Any failure returns an error wrapping ErrInvalidToken; callers treat it as
// "anonymous", never as a fault.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	c := &Claims{}
	_, err := jwt.ParseWithClaims(
		tokenStr,
		c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if c.UserID == "" || c.Subject != c.UserID {
		return nil, fmt.Errorf("%w: subject does not match user id", ErrInvalidToken)
	}

	return c, nil
}
