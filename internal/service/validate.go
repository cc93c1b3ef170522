package service

import (
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/agrichain-auth/internal/models"
)

const (
	minPasswordLen = 6
	// bcrypt учитывает только первые 72 байта.
	maxPasswordBytes = 72
	maxNameLen       = 100
)

// EmailRule — формат email для всех слоёв: пробелы по краям отбрасываются,
// остаток проверяется is.Email. nil и пустые значения пропускаются.
var EmailRule validation.Rule = validation.By(func(value any) error {
	v, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}
	s, _ := v.(string)
	return is.Email.Validate(strings.TrimSpace(s))
})

// normalizeEmail обрезает пробелы, проверяет формат и приводит к нижнему регистру.
func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", invalid("email", "is required")
	}

	if err := EmailRule.Validate(email); err != nil {
		return "", invalid("email", "must be a valid email address")
	}

	return strings.ToLower(email), nil
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", invalid("name", "is required")
	}

	if utf8.RuneCountInString(name) > maxNameLen {
		return "", invalid("name", "is too long")
	}

	return name, nil
}

func validatePassword(pw string) error {
	if pw == "" {
		return invalid("password", "is required")
	}

	if utf8.RuneCountInString(pw) < minPasswordLen {
		return invalid("password", "must be at least 6 characters")
	}

	if len(pw) > maxPasswordBytes {
		return invalid("password", "is too long")
	}

	return nil
}

// parseRole проверяет роль по закрытому перечислению.
func parseRole(raw string) (models.Role, error) {
	role, err := models.ParseRole(raw)
	if err != nil {
		return "", ErrInvalidRole
	}

	return role, nil
}

func (s *Service) hashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func checkPassword(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
