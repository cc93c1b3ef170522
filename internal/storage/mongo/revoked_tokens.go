package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

type revokedDoc struct {
	JTI       string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	RevokedAt time.Time `bson:"revoked_at"`
}

// RevokeToken вставляет запись об отзыве; повторная вставка того же jti -> (false, nil).
func (s *Storage) RevokeToken(ctx context.Context, jti string, userID uuid.UUID, expiresAt time.Time) (bool, error) {
	const op = "storage.mongo.RevokeToken"

	doc := revokedDoc{
		JTI:       jti,
		UserID:    userID.String(),
		ExpiresAt: expiresAt.UTC(),
		RevokedAt: time.Now().UTC(),
	}

	if _, err := s.revoked.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return false, nil
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

// IsTokenRevoked проверяет наличие jti в коллекции отозванных.
func (s *Storage) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	const op = "storage.mongo.IsTokenRevoked"

	n, err := s.revoked.CountDocuments(ctx, bson.M{"_id": jti})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n > 0, nil
}

// DeleteExpiredTokens удаляет истёкшие записи сразу, не дожидаясь TTL-монитора.
func (s *Storage) DeleteExpiredTokens(ctx context.Context, now time.Time) error {
	const op = "storage.mongo.DeleteExpiredTokens"

	if _, err := s.revoked.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now.UTC()}}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
