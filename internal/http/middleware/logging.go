package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/agrichain-auth/internal/pkg/log"
)

// Logging кладёт request-scoped логгер в контекст и пишет запись о каждом запросе.
// Путь логируется без query-строки.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := l
			if rid := r.Header.Get(HeaderRequestID); rid != "" {
				reqLogger = reqLogger.With(slog.String("request_id", rid))
			}
			// Authenticate возвращает сюда логгер с user_id/role для итоговой записи.
			holder := &loggerHolder{l: reqLogger}
			ctx := withLoggerHolder(log.Into(r.Context(), reqLogger), holder)
			r = r.WithContext(ctx)

			sw := newStatusWriter(w)
			start := time.Now()

			next.ServeHTTP(sw, r)

			lvl := slog.LevelInfo
			if sw.Status() >= http.StatusInternalServerError {
				lvl = slog.LevelError
			}

			holder.l.LogAttrs(r.Context(), lvl, "http_request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.Status()),
				slog.Duration("dur", time.Since(start)),
				slog.Int("bytes", sw.written),
			)
		})
	}
}
