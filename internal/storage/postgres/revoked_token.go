package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RevokeToken помечает refresh-токен (jti) отозванным.
// Возвращает:
//
//	(true, nil)  — токен был активен и отозван сейчас;
//	(false, nil) — запись уже существовала (токен отозван ранее).
func (s *Storage) RevokeToken(ctx context.Context, jti string, userID uuid.UUID, expiresAt time.Time) (bool, error) {
	const op = "storage.postgres.RevokeToken"

	query := `
		INSERT INTO revoked_tokens(jti, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (jti) DO NOTHING
	`

	tag, err := s.db.Exec(ctx, query, jti, userID, expiresAt)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected() == 1, nil
}

// IsTokenRevoked проверяет наличие jti в списке отозванных.
func (s *Storage) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	const op = "storage.postgres.IsTokenRevoked"

	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = $1)`, jti).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

// DeleteExpiredTokens удаляет записи об отзыве уже истёкших токенов.
func (s *Storage) DeleteExpiredTokens(ctx context.Context, now time.Time) error {
	const op = "storage.postgres.DeleteExpiredTokens"

	query := `
		DELETE FROM revoked_tokens
		WHERE expires_at <= $1
	`

	if _, err := s.db.Exec(ctx, query, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
