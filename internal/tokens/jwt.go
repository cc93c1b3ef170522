package tokens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/agrichain-auth/internal/models"
	"github.com/pribylovaa/agrichain-auth/internal/pkg/log"
)

type claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// Issue выпускает новую пару access + refresh для пользователя.
func (m *Manager) Issue(ctx context.Context, userID uuid.UUID, role models.Role) (*models.TokenPair, error) {
	const op = "tokens.jwt.Issue"

	if userID == uuid.Nil || !role.IsValid() {
		return nil, fmt.Errorf("%s: bad subject (user_id=%s, role=%q)", op, userID, role)
	}

	now := m.now()

	access, accessExp, err := m.sign(ctx, TypeAccess, userID, role, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, refreshExp, err := m.sign(ctx, TypeRefresh, userID, role, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (m *Manager) sign(ctx context.Context, typ string, userID uuid.UUID, role models.Role, now time.Time) (string, time.Time, error) {
	const op = "tokens.jwt.sign"

	key, ttl := m.accessKey, m.accessTTL
	if typ == TypeRefresh {
		key, ttl = m.refreshKey, m.refreshTTL
	}

	exp := jwt.NewNumericDate(now.Add(ttl))

	c := claims{
		UserID: userID.String(),
		Role:   string(role),
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: exp,
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings(m.audience),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(key)
	if err != nil {
		log.From(ctx).Error("token_sign_failed",
			slog.String("op", op),
			slog.String("typ", typ),
			slog.String("err", err.Error()),
		)
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, exp.Time.UTC(), nil
}

// VerifyAccess проверяет access-токен и возвращает личность владельца.
func (m *Manager) VerifyAccess(token string) (models.Identity, error) {
	return m.verify(token, TypeAccess, m.accessKey)
}

// VerifyRefresh проверяет refresh-токен. Отзыв здесь не проверяется (нет I/O).
func (m *Manager) VerifyRefresh(token string) (models.Identity, error) {
	return m.verify(token, TypeRefresh, m.refreshKey)
}

func (m *Manager) verify(tokenStr, typ string, key []byte) (models.Identity, error) {
	const op = "tokens.jwt.verify"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithLeeway(m.leeway),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
	}
	if len(m.audience) > 0 {
		opts = append(opts, jwt.WithAudience(m.audience...))
	}

	var c claims
	token, err := jwt.ParseWithClaims(tokenStr, &c,
		func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, ErrTokenMalformed
			}

			return key, nil
		},
		opts...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return models.Identity{}, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return models.Identity{}, fmt.Errorf("%s: %w: %v", op, ErrTokenMalformed, err)
	}

	if !token.Valid || c.Type != typ {
		return models.Identity{}, fmt.Errorf("%s: %w: unexpected token type %q", op, ErrTokenMalformed, c.Type)
	}

	uid, err := uuid.Parse(c.UserID)
	if err != nil || c.Subject != c.UserID {
		return models.Identity{}, fmt.Errorf("%s: %w: bad subject", op, ErrTokenMalformed)
	}

	role, err := models.ParseRole(c.Role)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%s: %w: %v", op, ErrTokenMalformed, err)
	}

	if c.ID == "" {
		return models.Identity{}, fmt.Errorf("%s: %w: missing jti", op, ErrTokenMalformed)
	}

	id := models.Identity{
		UserID:    uid,
		Role:      role,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time.UTC(),
	}
	if c.IssuedAt != nil {
		id.IssuedAt = c.IssuedAt.Time.UTC()
	}

	return id, nil
}
