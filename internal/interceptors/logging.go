// interceptors — unary-перехватчики gRPC-сервера валидации токенов.
package interceptors

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/agrichain-auth/internal/pkg/log"
)

// MetadataRequestID — ключ metadata с идентификатором запроса.
const MetadataRequestID = "x-request-id"

// Logging кладёт request-scoped логгер в контекст и пишет одну запись "grpc_request"
// на каждый вызов: request_id (из metadata или новый UUID), метод, peer, код и длительность.
// Internal/Unknown/DataLoss логируются уровнем Error.
func Logging(base *slog.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		rid := requestID(ctx)

		peerAddr := "-"
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			peerAddr = p.Addr.String()
		}

		l := base.With(
			slog.String("request_id", rid),
			slog.String("method", info.FullMethod),
			slog.String("peer", peerAddr),
		)
		ctx = log.Into(ctx, l)

		resp, err := handler(ctx, req)

		code := status.Code(err)
		lvl := slog.LevelInfo
		switch code {
		case codes.Internal, codes.Unknown, codes.DataLoss:
			lvl = slog.LevelError
		}

		l.LogAttrs(ctx, lvl, "grpc_request",
			slog.String("code", code.String()),
			slog.Duration("dur", time.Since(start)),
		)

		return resp, err
	}
}

func requestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(MetadataRequestID); len(v) > 0 && v[0] != "" && len(v[0]) <= 128 {
			return v[0]
		}
	}

	return uuid.NewString()
}
