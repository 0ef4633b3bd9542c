// Package session issues and verifies signed session tokens.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// DefaultTTL is how long a session token stays valid.
const DefaultTTL = 30 * 24 * time.Hour

const issuer = "getitdone"

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session token expired")
)

// Claims identify a user and the server-side session record the token belongs to.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (c Claims) UserID() string { return c.Subject }

// Keys signs tokens with HS256.
type Keys struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewKeys(secret []byte, ttl time.Duration) (*Keys, error) {
	if len(secret) < 16 {
		return nil, errors.New("session secret too short")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Keys{secret: secret, ttl: ttl, now: time.Now}, nil
}

// LoadOrInitSecret reads the signing secret at path, creating a random one on first use.
func LoadOrInitSecret(path string) ([]byte, error) {
	if b, err := os.ReadFile(path); err == nil && len(strings.TrimSpace(string(b))) > 0 {
		return []byte(strings.TrimSpace(string(b))), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	enc := base64.RawURLEncoding.EncodeToString(raw)
	if err := os.WriteFile(path, []byte(enc+"\n"), 0o600); err != nil {
		return nil, err
	}
	return []byte(enc), nil
}

// Issue returns a signed token for userID bound to sessionID.
func (k *Keys) Issue(userID, sessionID string) (string, error) {
	userID = strings.TrimSpace(userID)
	sessionID = strings.TrimSpace(sessionID)
	if userID == "" || sessionID == "" {
		return "", errors.New("issue token: missing user or session")
	}
	now := k.now()
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(k.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.secret)
}

// Verify checks the signature and expiry of token and returns its claims.
func (k *Keys) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return Claims{}, ErrInvalidToken
	}

	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return k.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.SessionID == "" || !claims.VerifyIssuer(issuer, true) {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
