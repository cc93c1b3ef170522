package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenPair — пара токенов, выдаваемая при регистрации, входе и обновлении.
//
// Описание:
//   - AccessToken — короткоживущий JWT для авторизации запросов;
//   - RefreshToken — долгоживущий JWT, используется только для выпуска новой пары;
//   - AccessExpiresAt/RefreshExpiresAt — моменты истечения (UTC).
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Identity — результат проверки токена: кто и с какой ролью.
type Identity struct {
	UserID    uuid.UUID
	Role      Role
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
