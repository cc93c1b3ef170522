package interceptors

import (
	"context"
	"log/slog"
	"runtime/debug"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/agrichain-auth/internal/pkg/log"
)

var errInternal = status.Error(codes.Internal, "internal error")

// Recover отвечает codes.Internal на панику в обработчике; значение паники
// и стек пишутся в лог из контекста, а без него в base.
func Recover(base *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			logger := log.From(ctx)
			if base != nil && logger == slog.Default() {
				logger = base
			}
			logger.LogAttrs(ctx, slog.LevelError, "panic_recovered",
				slog.String("method", info.FullMethod),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			resp, err = nil, errInternal
		}()

		return handler(ctx, req)
	}
}
