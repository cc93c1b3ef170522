package middleware

import (
	"context"
	"log/slog"
)

type holderKey struct{}

// loggerHolder — изменяемая ячейка с логгером запроса, общая для Logging и Authenticate.
type loggerHolder struct {
	l *slog.Logger
}

func withLoggerHolder(ctx context.Context, h *loggerHolder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

func setRequestLogger(ctx context.Context, l *slog.Logger) {
	if h, ok := ctx.Value(holderKey{}).(*loggerHolder); ok && h != nil {
		h.l = l
	}
}
