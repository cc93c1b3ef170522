package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pribylovaa/agrichain-auth/internal/models"
	"github.com/pribylovaa/agrichain-auth/internal/pkg/log"
	"github.com/pribylovaa/agrichain-auth/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ListFilter — параметры выборки пользователей для админки.
type ListFilter struct {
	Role   *models.Role
	Limit  int
	Offset int
}

// NewUser — данные для создания пользователя администратором.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// UserUpdate — частичное обновление пользователя администратором.
type UserUpdate struct {
	Name     *string
	Email    *string
	Password *string
	Role     *string
}

// Stats — сводка по учётным записям.
type Stats struct {
	Total  int                 `json:"total"`
	ByRole map[models.Role]int `json:"byRole"`
}

// ListUsers возвращает страницу пользователей и их общее количество.
func (s *Service) ListUsers(ctx context.Context, f ListFilter) ([]models.User, int, error) {
	const op = "service.admin.ListUsers"

	if f.Offset < 0 {
		return nil, 0, fmt.Errorf("%s: %w", op, invalid("offset", "must not be negative"))
	}

	if f.Limit < 0 {
		return nil, 0, fmt.Errorf("%s: %w", op, invalid("limit", "must not be negative"))
	}

	limit := f.Limit
	switch {
	case limit == 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	users, total, err := s.storage.ListUsers(ctx, storage.ListFilter{
		Role:   f.Role,
		Limit:  limit,
		Offset: f.Offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return users, total, nil
}

// GetUser возвращает пользователя по ID.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "service.admin.GetUser"

	user, err := s.storage.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// CreateUser создаёт пользователя с любой ролью из перечисления.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	const op = "service.admin.CreateUser"

	user, err := s.createUser(ctx, op, in.Name, in.Email, in.Password, in.Role)
	if err != nil {
		return nil, err
	}

	log.From(ctx).Info("user_created",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
		slog.String("role", user.Role.String()),
	)

	return user, nil
}

// UpdateUser применяет частичное обновление, включая смену роли.
// Новая роль попадает в токены при следующем выпуске пары.
func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, in UserUpdate) (*models.User, error) {
	const op = "service.admin.UpdateUser"

	var (
		upd storage.UserUpdate
		err error
	)

	if in.Name != nil || in.Email != nil || in.Password != nil {
		upd, err = s.buildUpdate(in.Name, in.Email, in.Password)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else if in.Role == nil {
		return nil, fmt.Errorf("%s: %w", op, invalid("", "nothing to update"))
	}

	if in.Role != nil {
		r, err := parseRole(*in.Role)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		upd.Role = &r
	}

	user, err := s.storage.UpdateUser(ctx, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		case errors.Is(err, storage.ErrAlreadyExists):
			return nil, fmt.Errorf("%s: %w", op, ErrDuplicateEmail)
		default:
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	log.From(ctx).Info("user_updated",
		slog.String("op", op),
		slog.String("user_id", id.String()),
		slog.Bool("role_changed", in.Role != nil),
	)

	return user, nil
}

// DeleteUser удаляет пользователя. Администратор не может удалить сам себя.
func (s *Service) DeleteUser(ctx context.Context, actorID, id uuid.UUID) error {
	const op = "service.admin.DeleteUser"

	if actorID == id {
		return fmt.Errorf("%s: %w", op, invalid("id", "cannot delete your own account"))
	}

	if err := s.storage.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_deleted",
		slog.String("op", op),
		slog.String("user_id", id.String()),
		slog.String("actor_id", actorID.String()),
	)

	return nil
}

// Stats возвращает число пользователей всего и по каждой роли (включая нулевые).
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	const op = "service.admin.Stats"

	counts, err := s.storage.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	st := &Stats{ByRole: make(map[models.Role]int, len(models.Roles()))}
	for _, r := range models.Roles() {
		st.ByRole[r] = counts[r]
		st.Total += counts[r]
	}

	return st, nil
}
