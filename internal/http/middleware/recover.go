package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/pribylovaa/agrichain-auth/internal/http/apierrors"
	"github.com/pribylovaa/agrichain-auth/internal/pkg/log"
)

var errPanic = errors.New("panic in handler")

// Recover превращает panic обработчика в ответ 500. Клиент получает
// обезличенное сообщение, значение паники и стек уходят только в лог.
// http.ErrAbortHandler пробрасывается дальше: им сервер обрывает соединение.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				ctx := r.Context()
				log.From(ctx).LogAttrs(ctx, slog.LevelError, "panic_recovered",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)
				apierrors.WriteError(w, r, errPanic)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
