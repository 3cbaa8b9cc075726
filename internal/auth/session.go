// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// privateKey signs session tokens. The key pair is generated fresh at process
// start: tokens are ephemeral credentials scoped to in-memory lobbies, so
// they never need to outlive the process.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
)

// Init generates the runtime ed25519 key pair.
func Init() error {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return nil
}

// CreateSessionToken mints the reconnect credential for one role in one
// lobby. The token is opaque to clients and validated by equality against the
// store's token table; the signature and random jti only make it unguessable.
func CreateSessionToken(code, role string) (string, error) {
	claims := jwt.MapClaims{
		"sub":   role,
		"lobby": code,
		"jti":   uuid.NewString(),
		"iat":   time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// VerifySessionToken checks the signature and returns the embedded lobby code
// and role. The store's equality check stays authoritative; this only lets
// callers reject garbage before touching the store.
func VerifySessionToken(tokenString string) (code string, role string, err error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", "", fmt.Errorf("invalid token")
	}
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("invalid jwt claims")
	}
	role, _ = claims["sub"].(string)
	code, _ = claims["lobby"].(string)
	if role == "" || code == "" {
		return "", "", fmt.Errorf("missing session claims")
	}
	return code, role, nil
}
