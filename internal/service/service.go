// service содержит бизнес-логику сервиса аутентификации:
// регистрацию и вход, обмен refresh-токенов, профиль пользователя
// и административные операции над учётными записями.
//
// Service не хранит состояние запроса; экземпляр безопасен для конкурентного
// использования при условии, что хранилище потокобезопасно.
// Ошибки-сентинелы ниже маппятся транспортом в HTTP-статусы (internal/http/apierrors).
package service

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/agrichain-auth/internal/config"
	"github.com/pribylovaa/agrichain-auth/internal/storage"
	"github.com/pribylovaa/agrichain-auth/internal/tokens"
)

var (
	// ErrValidation — входные данные не прошли проверку. HTTP 400.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidRole — роль не входит в перечисление. HTTP 400.
	ErrInvalidRole = errors.New("invalid role")

	// ErrDuplicateEmail — e-mail уже занят. HTTP 409.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials — неверная пара email/пароль, неизвестный пользователь
	// или недействительный refresh-токен; причины намеренно неразличимы. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotFound — пользователь не найден (админские операции). HTTP 404.
	ErrNotFound = errors.New("user not found")

	// ErrUnauthorized — токен валиден, но пользователя уже нет. HTTP 401.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError несёт понятное клиенту сообщение и матчится с ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}

	return e.Field + ": " + e.Reason
}

// Is позволяет проверять errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// EventRecorder учитывает события аутентификации (метрики); может быть nil.
type EventRecorder interface {
	AuthEvent(event, result string)
}

// Service описывает бизнес-логику сервиса аутентификации.
type Service struct {
	storage storage.UserStorage
	tokens  *tokens.Manager
	cost    int
	events  EventRecorder

	// dummyHash сравнивается при входе с неизвестным email, чтобы время ответа
	// не выдавало существование учётной записи.
	dummyHash []byte
}

// New создаёт новый экземпляр Service.
func New(st storage.UserStorage, tm *tokens.Manager, cfg config.AuthConfig) *Service {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("agrichain-dummy-password"), cost)
	if err != nil {
		// bcrypt падает только на слишком длинном пароле или неверной стоимости.
		panic(err)
	}

	return &Service{
		storage:   st,
		tokens:    tm,
		cost:      cost,
		dummyHash: dummy,
	}
}

// SetEventRecorder подключает учёт событий (опционально).
func (s *Service) SetEventRecorder(r EventRecorder) {
	s.events = r
}

func (s *Service) record(event string, err error) {
	if s.events == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "fail"
	}

	s.events.AuthEvent(event, result)
}
