// apierrors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает доменную ошибку (сентинелы service/tokens/контекста),
// на выход даёт HTTP-статус и тело {success:false, message, code}
// без утечки внутренних деталей.
package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/agrichain-auth/internal/service"
	"github.com/pribylovaa/agrichain-auth/internal/tokens"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// Ошибки транспортного слоя (middleware/handlers).
var (
	// ErrNoToken — нет заголовка Authorization: Bearer.
	ErrNoToken = errors.New("no token provided")
	// ErrForbidden — роль не входит в разрешённый набор.
	ErrForbidden = errors.New("forbidden")
	// ErrBadRequest — тело запроса не разобрано (синтаксис, неизвестные поля, тип).
	ErrBadRequest = errors.New("malformed request body")
	// ErrBodyTooLarge — тело запроса превышает лимит.
	ErrBodyTooLarge = errors.New("request body too large")
)

// ErrorResponse — единый формат ошибки для фронта.
// Code — короткий стабильный код; Message — безопасное описание;
// RequestID — из X-Request-Id (для трассировки).
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// ToHTTP конвертирует ошибку в HTTP-статус и тело ответа.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal;
//   - ValidationError — 400 с её текстом (он формируется для клиента);
//   - прочие сентинелы — по таблице ниже;
//   - всё остальное — 500/internal без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := classify(err)
	return status, ErrorResponse{Success: false, Message: msg, Code: code}
}

func classify(err error) (int, string, string) {
	if err == nil {
		return http.StatusInternalServerError, "internal", "internal error"
	}

	var ve *service.ValidationError
	var mbe *http.MaxBytesError

	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, "validation_error", ve.Error()
	case errors.As(err, &mbe), errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, "body_too_large", "request body too large"
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "validation_error", "invalid request"
	case errors.Is(err, service.ErrInvalidRole):
		return http.StatusBadRequest, "invalid_role", "invalid role"
	case errors.Is(err, service.ErrDuplicateEmail):
		return http.StatusConflict, "duplicate_email", "email already registered"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid credentials"
	case errors.Is(err, ErrNoToken):
		return http.StatusUnauthorized, "unauthorized", "no token provided"
	case errors.Is(err, tokens.ErrTokenExpired):
		return http.StatusUnauthorized, "unauthorized", "token expired"
	case errors.Is(err, tokens.ErrInvalidToken), errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", "invalid token"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden", "access denied"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found", "user not found"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

// WriteError — хелпер для HTTP-хендлеров и middleware.
// Пишет статус и тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
