package tokens

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/agrichain-auth/internal/config"
	"github.com/pribylovaa/agrichain-auth/internal/models"
	"github.com/pribylovaa/agrichain-auth/mocks"
)

func testAuthCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "unit-test-secret",
		RefreshSecret:   "unit-test-refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "agrichain-auth",
		Audience:        []string{"agrichain-api"},
	}
}

// fixedClock — управляемые часы; старт на целой секунде, чтобы exp совпадал с now+ttl.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

func newClock() *fixedClock {
	return &fixedClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func newManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	m, err := New(testAuthCfg(), opts...)
	require.NoError(t, err)
	return m
}

func signRaw(t *testing.T, method jwt.SigningMethod, key any, c jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, c).SignedString(key)
	require.NoError(t, err)
	return s
}

func baseClaims(uid uuid.UUID, now time.Time, typ string) jwt.MapClaims {
	cfg := testAuthCfg()
	return jwt.MapClaims{
		"uid":  uid.String(),
		"role": "farmer",
		"typ":  typ,
		"iss":  cfg.Issuer,
		"sub":  uid.String(),
		"aud":  cfg.Audience,
		"exp":  now.Add(time.Minute).Unix(),
		"iat":  now.Unix(),
		"jti":  uuid.NewString(),
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cfg := testAuthCfg()
	cfg.JWTSecret = ""
	_, err := New(cfg)
	require.Error(t, err)

	cfg = testAuthCfg()
	cfg.AccessTokenTTL = 0
	_, err = New(cfg)
	require.Error(t, err)
}

func TestIssue_VerifyRoundTrip(t *testing.T) {
	clk := newClock()
	m := newManager(t, WithClock(clk.now))
	uid := uuid.New()

	pair, err := m.Issue(context.Background(), uid, models.RoleFarmer)
	require.NoError(t, err)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	require.Equal(t, clk.t.Add(15*time.Minute), pair.AccessExpiresAt)
	require.Equal(t, clk.t.Add(24*time.Hour), pair.RefreshExpiresAt)

	id, err := m.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, uid, id.UserID)
	require.Equal(t, models.RoleFarmer, id.Role)
	require.Equal(t, clk.t, id.IssuedAt)
	require.Equal(t, pair.AccessExpiresAt, id.ExpiresAt)
	require.NotEmpty(t, id.TokenID)

	// Повторная проверка даёт тот же результат.
	again, err := m.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, id, again)

	rid, err := m.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, uid, rid.UserID)
	require.NotEqual(t, id.TokenID, rid.TokenID)
}

func TestIssue_RejectsBadSubject(t *testing.T) {
	m := newManager(t)

	_, err := m.Issue(context.Background(), uuid.Nil, models.RoleFarmer)
	require.Error(t, err)

	_, err = m.Issue(context.Background(), uuid.New(), models.Role("root"))
	require.Error(t, err)
}

func TestVerifyAccess_ExpiryBoundary(t *testing.T) {
	clk := newClock()
	m := newManager(t, WithClock(clk.now))

	pair, err := m.Issue(context.Background(), uuid.New(), models.RoleAdmin)
	require.NoError(t, err)

	clk.t = pair.AccessExpiresAt.Add(-time.Nanosecond)
	_, err = m.VerifyAccess(pair.AccessToken)
	require.NoError(t, err, "за один тик до exp токен действителен")

	clk.t = pair.AccessExpiresAt
	_, err = m.VerifyAccess(pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenExpired)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.NotErrorIs(t, err, ErrTokenMalformed)
}

func TestVerify_TypeMismatch(t *testing.T) {
	m := newManager(t)

	pair, err := m.Issue(context.Background(), uuid.New(), models.RoleRetailer)
	require.NoError(t, err)

	_, err = m.VerifyRefresh(pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenMalformed)

	_, err = m.VerifyAccess(pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerify_SameSecretStillChecksType(t *testing.T) {
	cfg := testAuthCfg()
	cfg.RefreshSecret = ""
	m, err := New(cfg)
	require.NoError(t, err)

	pair, err := m.Issue(context.Background(), uuid.New(), models.RoleRetailer)
	require.NoError(t, err)

	_, err = m.VerifyAccess(pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerifyAccess_Rejections(t *testing.T) {
	clk := newClock()
	m := newManager(t, WithClock(clk.now))
	secret := []byte(testAuthCfg().JWTSecret)
	uid := uuid.New()

	tests := []struct {
		name  string
		token func() string
	}{
		{"garbage", func() string { return "not.a.jwt" }},
		{"empty", func() string { return "" }},
		{"wrong alg", func() string {
			return signRaw(t, jwt.SigningMethodHS512, secret, baseClaims(uid, clk.t, TypeAccess))
		}},
		{"wrong secret", func() string {
			return signRaw(t, jwt.SigningMethodHS256, []byte("other"), baseClaims(uid, clk.t, TypeAccess))
		}},
		{"wrong issuer", func() string {
			c := baseClaims(uid, clk.t, TypeAccess)
			c["iss"] = "someone-else"
			return signRaw(t, jwt.SigningMethodHS256, secret, c)
		}},
		{"wrong audience", func() string {
			c := baseClaims(uid, clk.t, TypeAccess)
			c["aud"] = []string{"unexpected"}
			return signRaw(t, jwt.SigningMethodHS256, secret, c)
		}},
		{"unknown role", func() string {
			c := baseClaims(uid, clk.t, TypeAccess)
			c["role"] = "superuser"
			return signRaw(t, jwt.SigningMethodHS256, secret, c)
		}},
		{"bad uid", func() string {
			c := baseClaims(uid, clk.t, TypeAccess)
			c["uid"] = "not-a-uuid"
			c["sub"] = "not-a-uuid"
			return signRaw(t, jwt.SigningMethodHS256, secret, c)
		}},
		{"subject mismatch", func() string {
			c := baseClaims(uid, clk.t, TypeAccess)
			c["sub"] = uuid.NewString()
			return signRaw(t, jwt.SigningMethodHS256, secret, c)
		}},
		{"missing exp", func() string {
			c := baseClaims(uid, clk.t, TypeAccess)
			delete(c, "exp")
			return signRaw(t, jwt.SigningMethodHS256, secret, c)
		}},
		{"missing jti", func() string {
			c := baseClaims(uid, clk.t, TypeAccess)
			delete(c, "jti")
			return signRaw(t, jwt.SigningMethodHS256, secret, c)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.VerifyAccess(tt.token())
			require.ErrorIs(t, err, ErrTokenMalformed)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRefresh_NoRevoker_ReusableUntilExpiry(t *testing.T) {
	clk := newClock()
	m := newManager(t, WithClock(clk.now))
	ctx := context.Background()
	uid := uuid.New()

	pair, err := m.Issue(ctx, uid, models.RoleFarmer)
	require.NoError(t, err)

	next, id, err := m.Refresh(ctx, pair.RefreshToken, nil)
	require.NoError(t, err)
	require.Equal(t, uid, id.UserID)
	require.NotEmpty(t, next.AccessToken)

	_, _, err = m.Refresh(ctx, pair.RefreshToken, nil)
	require.NoError(t, err)

	clk.t = pair.RefreshExpiresAt
	_, _, err = m.Refresh(ctx, pair.RefreshToken, nil)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefresh_ResolverUpdatesRole(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	uid := uuid.New()

	pair, err := m.Issue(ctx, uid, models.RoleFarmer)
	require.NoError(t, err)

	next, id, err := m.Refresh(ctx, pair.RefreshToken, func(_ context.Context, id models.Identity) (models.Identity, error) {
		id.Role = models.RoleManager
		return id, nil
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleManager, id.Role)

	got, err := m.VerifyAccess(next.AccessToken)
	require.NoError(t, err)
	require.Equal(t, models.RoleManager, got.Role)
}

func TestRefresh_ResolverError_IsPropagated(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	pair, err := m.Issue(ctx, uuid.New(), models.RoleFarmer)
	require.NoError(t, err)

	boom := errors.New("user gone")
	_, _, err = m.Refresh(ctx, pair.RefreshToken, func(context.Context, models.Identity) (models.Identity, error) {
		return models.Identity{}, boom
	})
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_WithRevoker_Rotation(t *testing.T) {
	ctrl := gomock.NewController(t)
	rev := mocks.NewMockRevoker(ctrl)
	m := newManager(t, WithRevoker(rev))
	ctx := context.Background()
	uid := uuid.New()

	pair, err := m.Issue(ctx, uid, models.RoleFarmer)
	require.NoError(t, err)
	rid, err := m.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)

	gomock.InOrder(
		rev.EXPECT().IsTokenRevoked(gomock.Any(), rid.TokenID).Return(false, nil),
		rev.EXPECT().RevokeToken(gomock.Any(), rid.TokenID, uid, rid.ExpiresAt).Return(true, nil),
		rev.EXPECT().IsTokenRevoked(gomock.Any(), rid.TokenID).Return(true, nil),
	)

	_, _, err = m.Refresh(ctx, pair.RefreshToken, nil)
	require.NoError(t, err)

	_, _, err = m.Refresh(ctx, pair.RefreshToken, nil)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
	require.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRefresh_WithRevoker_LostRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	rev := mocks.NewMockRevoker(ctrl)
	m := newManager(t, WithRevoker(rev))
	ctx := context.Background()

	pair, err := m.Issue(ctx, uuid.New(), models.RoleFarmer)
	require.NoError(t, err)

	rev.EXPECT().IsTokenRevoked(gomock.Any(), gomock.Any()).Return(false, nil)
	rev.EXPECT().RevokeToken(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)

	_, _, err = m.Refresh(ctx, pair.RefreshToken, nil)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_WithRevoker_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	rev := mocks.NewMockRevoker(ctrl)
	m := newManager(t, WithRevoker(rev))
	ctx := context.Background()

	pair, err := m.Issue(ctx, uuid.New(), models.RoleFarmer)
	require.NoError(t, err)

	down := errors.New("redis down")
	rev.EXPECT().IsTokenRevoked(gomock.Any(), gomock.Any()).Return(false, down)

	_, _, err = m.Refresh(ctx, pair.RefreshToken, nil)
	require.ErrorIs(t, err, down)
	require.NotErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled is no-op", func(t *testing.T) {
		m := newManager(t)
		require.False(t, m.RevocationEnabled())
		require.NoError(t, m.Revoke(ctx, "whatever"))
	})

	t.Run("revokes valid token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		rev := mocks.NewMockRevoker(ctrl)
		m := newManager(t, WithRevoker(rev))
		uid := uuid.New()

		pair, err := m.Issue(ctx, uid, models.RoleFarmer)
		require.NoError(t, err)

		rev.EXPECT().RevokeToken(gomock.Any(), gomock.Any(), uid, pair.RefreshExpiresAt).Return(true, nil)
		require.NoError(t, m.Revoke(ctx, pair.RefreshToken))
	})

	t.Run("invalid token skipped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		rev := mocks.NewMockRevoker(ctrl)
		m := newManager(t, WithRevoker(rev))

		require.NoError(t, m.Revoke(ctx, "garbage"))
	})
}
