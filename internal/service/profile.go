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

// ProfileUpdate — частичное обновление собственного профиля; nil-поля не меняются.
type ProfileUpdate struct {
	Name     *string
	Email    *string
	Password *string
}

// Profile возвращает профиль вызывающего пользователя.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	const op = "service.profile.Profile"

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UpdateProfile обновляет имя, email и/или пароль вызывающего пользователя.
// Роль здесь не меняется.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileUpdate) (*models.User, error) {
	const op = "service.profile.UpdateProfile"

	upd, err := s.buildUpdate(in.Name, in.Email, in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UpdateUser(ctx, userID, upd)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		case errors.Is(err, storage.ErrAlreadyExists):
			return nil, fmt.Errorf("%s: %w", op, ErrDuplicateEmail)
		default:
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	log.From(ctx).Info("profile_updated",
		slog.String("op", op),
		slog.String("user_id", userID.String()),
		slog.Bool("password_changed", in.Password != nil),
	)

	return user, nil
}

// buildUpdate проверяет и нормализует поля частичного обновления.
func (s *Service) buildUpdate(name, email, password *string) (storage.UserUpdate, error) {
	var upd storage.UserUpdate

	if name == nil && email == nil && password == nil {
		return upd, invalid("", "nothing to update")
	}

	if name != nil {
		n, err := validateName(*name)
		if err != nil {
			return upd, err
		}
		upd.Name = &n
	}

	if email != nil {
		e, err := normalizeEmail(*email)
		if err != nil {
			return upd, err
		}
		upd.Email = &e
	}

	if password != nil {
		if err := validatePassword(*password); err != nil {
			return upd, err
		}

		hash, err := s.hashPassword(*password)
		if err != nil {
			return upd, err
		}
		upd.PasswordHash = &hash
	}

	return upd, nil
}
