package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pribylovaa/agrichain-auth/internal/http/apierrors"
	"github.com/pribylovaa/agrichain-auth/internal/service"
)

// Handlers агрегирует зависимости REST-эндпойнтов.
type Handlers struct {
	svc *service.Service
}

func New(svc *service.Service) *Handlers {
	return &Handlers{svc: svc}
}

// envelope — успешный ответ {success:true, ...}.
type envelope struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	Data         any    `json:"data,omitempty"`
	Count        *int   `json:"count,omitempty"`
	Token        string `json:"token,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// validatable — DTO с проверкой формы (ozzo-validation).
type validatable interface {
	Validate() error
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля и хвост после объекта.
// Превышение лимита тела пробрасывается как есть (413), прочие ошибки — ErrBadRequest.
// Если DTO умеет Validate, ошибки формы возвращаются как service.ValidationError.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}

		return fmt.Errorf("%w: %v", apierrors.ErrBadRequest, err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", apierrors.ErrBadRequest)
	}

	if v, ok := value.(validatable); ok {
		if err := v.Validate(); err != nil {
			return &service.ValidationError{Reason: err.Error()}
		}
	}

	return nil
}
