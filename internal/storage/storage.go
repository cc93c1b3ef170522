// storage задаёт контракты хранилища учётных записей и записей об отзыве
// refresh-токенов. Реализации: postgres (основная) и mongo.
package storage

//go:generate mockgen -destination=../../mocks/storage.go -package=mocks github.com/pribylovaa/agrichain-auth/internal/storage Storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/agrichain-auth/internal/models"
)

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/id/jti).
	ErrAlreadyExists = errors.New("already exists")
	// ErrCorruptRecord — запись в БД нарушает инварианты модели (например, неизвестная роль).
	ErrCorruptRecord = errors.New("corrupt record")
)

// UserUpdate — частичное обновление пользователя.
// Обновляются только непустые указатели; updated_at сдвигается всегда.
type UserUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *models.Role
}

// ListFilter — параметры выборки пользователей.
type ListFilter struct {
	Role   *models.Role
	Limit  int
	Offset int
}

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создаёт нового пользователя; ErrAlreadyExists при конфликте email/id.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по нормализованному email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// ListUsers возвращает страницу пользователей и общее число подходящих под фильтр.
	ListUsers(ctx context.Context, filter ListFilter) ([]models.User, int, error)
	// UpdateUser применяет частичное обновление и возвращает актуальную запись.
	UpdateUser(ctx context.Context, id uuid.UUID, update UserUpdate) (*models.User, error)
	// DeleteUser удаляет пользователя; ErrNotFound, если записи нет.
	DeleteUser(ctx context.Context, id uuid.UUID) error
	// CountByRole возвращает число пользователей в разрезе ролей.
	CountByRole(ctx context.Context) (map[models.Role]int, error)
}

// RevokedTokenStorage хранит идентификаторы (jti) отозванных refresh-токенов.
type RevokedTokenStorage interface {
	// RevokeToken помечает jti отозванным.
	// Возвращает true, если токен отозван сейчас, и false, если он уже был отозван ранее.
	RevokeToken(ctx context.Context, jti string, userID uuid.UUID, expiresAt time.Time) (bool, error)
	// IsTokenRevoked сообщает, отозван ли jti.
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	// DeleteExpiredTokens удаляет записи, срок действия которых истёк.
	DeleteExpiredTokens(ctx context.Context, now time.Time) error
}

// Storage задаёт контракт работы с БД.
type Storage interface {
	UserStorage
	RevokedTokenStorage
	Close()
}
