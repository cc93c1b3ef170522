package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/agrichain-auth/internal/models"
	"github.com/pribylovaa/agrichain-auth/internal/pkg/log"
	"github.com/pribylovaa/agrichain-auth/internal/pkg/redact"
	"github.com/pribylovaa/agrichain-auth/internal/storage"
	"github.com/pribylovaa/agrichain-auth/internal/tokens"
)

// Signup регистрирует пользователя и выдаёт пару токенов.
func (s *Service) Signup(ctx context.Context, name, email, password, role string) (user *models.User, pair *models.TokenPair, err error) {
	const op = "service.auth.Signup"

	defer func() { s.record("signup", err) }()

	user, err = s.createUser(ctx, op, name, email, password, role)
	if err != nil {
		return nil, nil, err
	}

	pair, err = s.tokens.Issue(ctx, user.ID, user.Role)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_signed_up",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(user.Email)),
		slog.String("role", user.Role.String()),
	)

	return user, pair, nil
}

// createUser — общая часть Signup и CreateUser: проверка, хэширование, сохранение.
func (s *Service) createUser(ctx context.Context, op, name, email, password, role string) (*models.User, error) {
	normName, err := validateName(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	normEmail, err := normalizeEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := validatePassword(password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r, err := parseRole(role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.storage.UserByEmail(ctx, normEmail)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrDuplicateEmail)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Name:         normName,
		Email:        normEmail,
		PasswordHash: hash,
		Role:         r,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Проверка выше не защищает от гонки: окончательно решает уникальный индекс.
	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrDuplicateEmail)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// Signin выполняет вход по email + пароль.
// Неизвестный email и неверный пароль дают одну и ту же ErrInvalidCredentials.
func (s *Service) Signin(ctx context.Context, email, password string) (user *models.User, pair *models.TokenPair, err error) {
	const op = "service.auth.Signin"

	defer func() { s.record("signin", err) }()

	lg := log.From(ctx)

	normEmail, nerr := normalizeEmail(email)
	if nerr != nil || password == "" {
		checkPassword(s.dummyHash, password)
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err = s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			checkPassword(s.dummyHash, password)
			lg.Warn("signin_failed",
				slog.String("op", op),
				slog.String("email", redact.Email(normEmail)),
			)
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword([]byte(user.PasswordHash), password) {
		lg.Warn("signin_failed",
			slog.String("op", op),
			slog.String("email", redact.Email(normEmail)),
		)
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err = s.tokens.Issue(ctx, user.ID, user.Role)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, pair, nil
}

// Refresh обменивает refresh-токен на новую пару.
// Роль перечитывается из хранилища, поэтому смена роли админом видна после обмена.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (pair *models.TokenPair, err error) {
	const op = "service.auth.Refresh"

	defer func() { s.record("refresh", err) }()

	pair, _, err = s.tokens.Refresh(ctx, refreshToken, s.resolveIdentity)
	if err != nil {
		if errors.Is(err, tokens.ErrInvalidRefreshToken) || errors.Is(err, ErrUnauthorized) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// resolveIdentity перечитывает пользователя по личности из refresh-токена.
func (s *Service) resolveIdentity(ctx context.Context, id models.Identity) (models.Identity, error) {
	user, err := s.storage.UserByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Identity{}, ErrUnauthorized
		}

		return models.Identity{}, err
	}

	id.Role = user.Role
	return id, nil
}

// Logout отзывает refresh-токен, если отзыв включён; иначе no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) (err error) {
	const op = "service.auth.Logout"

	defer func() { s.record("logout", err) }()

	if refreshToken == "" {
		return fmt.Errorf("%s: %w", op, invalid("refreshToken", "is required"))
	}

	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Verify возвращает актуальную запись владельца access-токена.
// Удалённый пользователь -> ErrUnauthorized.
func (s *Service) Verify(ctx context.Context, id models.Identity) (*models.User, error) {
	const op = "service.auth.Verify"

	user, err := s.storage.UserByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}
