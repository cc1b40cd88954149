package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// ErrInvalidToken is returned for every verification failure. Expired,
// tampered, malformed and wrong-kind tokens are indistinguishable to callers.
var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID   string `json:"id"`
	Username string `json:"username,omitempty"`
	Kind     Kind   `json:"kind"`
	gojwt.RegisteredClaims
}

type Config struct {
	AccessSecret      string
	RefreshSecret     string
	AccessExpiration  time.Duration
	RefreshExpiration time.Duration
}

// Manager issues and verifies access and refresh tokens. Each kind is
// signed with its own secret.
type Manager struct {
	cfg Config
	now func() time.Time
}

func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg: cfg,
		now: time.Now,
	}
}

// WithClock returns a copy of the manager that reads the current time from now.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	return &Manager{
		cfg: m.cfg,
		now: now,
	}
}

func (m *Manager) AccessExpiration() time.Duration {
	return m.cfg.AccessExpiration
}

func (m *Manager) RefreshExpiration() time.Duration {
	return m.cfg.RefreshExpiration
}

func (m *Manager) IssueAccessToken(userID, username string) (string, error) {
	return m.sign(Claims{
		UserID:   userID,
		Username: username,
		Kind:     KindAccess,
	}, m.cfg.AccessExpiration, m.cfg.AccessSecret)
}

func (m *Manager) IssueRefreshToken(userID string) (string, error) {
	return m.sign(Claims{
		UserID: userID,
		Kind:   KindRefresh,
	}, m.cfg.RefreshExpiration, m.cfg.RefreshSecret)
}

func (m *Manager) VerifyAccess(token string) (*Claims, error) {
	return m.verify(token, KindAccess, m.cfg.AccessSecret)
}

func (m *Manager) VerifyRefresh(token string) (*Claims, error) {
	return m.verify(token, KindRefresh, m.cfg.RefreshSecret)
}

func (m *Manager) sign(claims Claims, ttl time.Duration, secret string) (string, error) {
	now := m.now()
	claims.RegisteredClaims = gojwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   claims.UserID,
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
	}

	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", claims.Kind, err)
	}

	return signed, nil
}

func (m *Manager) verify(tokenString string, kind Kind, secret string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := gojwt.ParseWithClaims(tokenString, &Claims{}, func(token *gojwt.Token) (any, error) {
		if _, ok := token.Method.(*gojwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Kind != kind || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
