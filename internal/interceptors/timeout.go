package interceptors

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

// Timeout ограничивает вызов дедлайном d, если клиент не прислал свой.
// При d <= 0 контекст не меняется.
func Timeout(d time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, has := ctx.Deadline(); has || d <= 0 {
			return handler(ctx, req)
		}

		bounded, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return handler(bounded, req)
	}
}
