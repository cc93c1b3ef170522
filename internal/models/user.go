package models

import (
	"time"

	"github.com/google/uuid"
)

// User — учётная запись платформы.
// PasswordHash никогда не сериализуется наружу.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
