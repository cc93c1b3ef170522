// tokens выпускает и проверяет пары JWT (access + refresh).
//
// Проверка токена — чистое вычисление без I/O: подпись, алгоритм, issuer,
// audience, тип токена и срок действия. Срок проверяется без допуска
// (leeway=0 по умолчанию): токен, проверенный ровно в момент exp, уже истёк.
//
// Manager безопасен для конкурентного использования; единственное
// разделяемое состояние — опциональный Revoker, который должен быть
// потокобезопасным.
package tokens

//go:generate mockgen -destination=../../mocks/revoker.go -package=mocks github.com/pribylovaa/agrichain-auth/internal/tokens Revoker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/agrichain-auth/internal/config"
)

var (
	// ErrInvalidToken — общий класс ошибок проверки токена.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия истёк (now >= exp).
	ErrTokenExpired = fmt.Errorf("%w: expired", ErrInvalidToken)

	// ErrTokenMalformed — структура, подпись, алгоритм, issuer, audience,
	// тип или subject не прошли проверку.
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)

	// ErrTokenRevoked — refresh-токен уже использован или отозван.
	ErrTokenRevoked = fmt.Errorf("%w: revoked", ErrInvalidToken)

	// ErrInvalidRefreshToken — обмен refresh-токена на новую пару не удался.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// Типы токенов в claim "typ".
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Revoker хранит jti отозванных refresh-токенов.
type Revoker interface {
	// RevokeToken атомарно помечает jti отозванным; false — уже был отозван.
	RevokeToken(ctx context.Context, jti string, userID uuid.UUID, expiresAt time.Time) (bool, error)
	// IsTokenRevoked сообщает, отозван ли jti.
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// Manager выпускает и проверяет токены.
type Manager struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   []string
	leeway     time.Duration

	now     func() time.Time
	revoker Revoker // может быть nil: отзыв выключен
}

// Option настраивает Manager.
type Option func(*Manager)

// WithClock подменяет источник времени (для тестов границ срока действия).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRevoker включает серверный отзыв refresh-токенов.
func WithRevoker(r Revoker) Option {
	return func(m *Manager) { m.revoker = r }
}

// New создаёт Manager из секции auth конфигурации.
func New(cfg config.AuthConfig, opts ...Option) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("tokens: empty jwt secret")
	}

	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, errors.New("tokens: token ttl must be positive")
	}

	m := &Manager{
		accessKey:  []byte(cfg.JWTSecret),
		refreshKey: []byte(cfg.RefreshKey()),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		leeway:     cfg.Leeway,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// RevocationEnabled сообщает, подключён ли Revoker.
func (m *Manager) RevocationEnabled() bool { return m.revoker != nil }

