package tokens

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/agrichain-auth/internal/models"
	"github.com/pribylovaa/agrichain-auth/internal/pkg/log"
)

// Resolver по личности из refresh-токена возвращает актуальную личность
// (например, перечитывает роль пользователя из хранилища).
type Resolver func(ctx context.Context, id models.Identity) (models.Identity, error)

// Refresh обменивает refresh-токен на новую пару.
// Ошибки проверки и повторное использование токена -> ErrInvalidRefreshToken;
// ошибки resolve и хранилища отзыва возвращаются как есть (обёрнутыми).
// При включённом отзыве refresh-токен одноразовый.
func (m *Manager) Refresh(ctx context.Context, refreshToken string, resolve Resolver) (*models.TokenPair, models.Identity, error) {
	const op = "tokens.refresh.Refresh"

	lg := log.From(ctx)

	id, err := m.VerifyRefresh(refreshToken)
	if err != nil {
		lg.Warn("refresh_token_rejected",
			slog.String("op", op),
			slog.String("reason", err.Error()),
		)
		return nil, models.Identity{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidRefreshToken, err)
	}

	if m.revoker != nil {
		revoked, err := m.revoker.IsTokenRevoked(ctx, id.TokenID)
		if err != nil {
			return nil, models.Identity{}, fmt.Errorf("%s: %w", op, err)
		}

		if revoked {
			lg.Warn("refresh_token_reused",
				slog.String("op", op),
				slog.String("user_id", id.UserID.String()),
			)
			return nil, models.Identity{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidRefreshToken, ErrTokenRevoked)
		}
	}

	current := id
	if resolve != nil {
		current, err = resolve(ctx, id)
		if err != nil {
			return nil, models.Identity{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	if m.revoker != nil {
		// Гонка двух обменов одного токена: выигрывает первый RevokeToken.
		ok, err := m.revoker.RevokeToken(ctx, id.TokenID, id.UserID, id.ExpiresAt)
		if err != nil {
			return nil, models.Identity{}, fmt.Errorf("%s: %w", op, err)
		}

		if !ok {
			lg.Warn("refresh_token_reused",
				slog.String("op", op),
				slog.String("user_id", id.UserID.String()),
			)
			return nil, models.Identity{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidRefreshToken, ErrTokenRevoked)
		}
	}

	pair, err := m.Issue(ctx, current.UserID, current.Role)
	if err != nil {
		return nil, models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	return pair, current, nil
}

// Revoke отзывает refresh-токен (logout). Без Revoker — no-op.
// Недействительный или истёкший токен отзывать не нужно: возвращается nil.
func (m *Manager) Revoke(ctx context.Context, refreshToken string) error {
	const op = "tokens.refresh.Revoke"

	if m.revoker == nil {
		return nil
	}

	id, err := m.VerifyRefresh(refreshToken)
	if err != nil {
		log.From(ctx).Debug("revoke_skipped_invalid_token",
			slog.String("op", op),
			slog.String("reason", err.Error()),
		)
		return nil
	}

	if _, err := m.revoker.RevokeToken(ctx, id.TokenID, id.UserID, id.ExpiresAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
