package interceptors

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/agrichain-auth/internal/pkg/log"
)

type capHandler struct {
	mu      sync.Mutex
	base    []slog.Attr
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}

	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})

	h.lastMsg = r.Message
	h.lastLvl = r.Level
	h.attrs = out
	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.base = append(h.base, attrs...)
	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

const method = "/agrichain.auth.v1.TokenValidator/ValidateToken"

func TestLogging_RequestIDFromMetadata(t *testing.T) {
	h := &capHandler{}

	md := metadata.New(map[string]string{MetadataRequestID: "rid-123"})
	ctx := metadata.NewIncomingContext(context.Background(), md)
	ctx = peer.NewContext(ctx, &peer.Peer{
		Addr: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 7), Port: 41000},
	})

	var inner *slog.Logger
	resp, err := Logging(slog.New(h))(ctx, "req", &grpc.UnaryServerInfo{FullMethod: method},
		func(ctx context.Context, _ any) (any, error) {
			inner = log.From(ctx)
			time.Sleep(2 * time.Millisecond)
			return "ok", nil
		})
	require.NoError(t, err)
	require.Equal(t, "ok", resp)
	require.NotSame(t, slog.Default(), inner)

	require.Equal(t, "grpc_request", h.lastMsg)
	require.Equal(t, slog.LevelInfo, h.lastLvl)
	require.Equal(t, "rid-123", h.attrs["request_id"])
	require.Equal(t, method, h.attrs["method"])
	require.Equal(t, "10.0.0.7:41000", h.attrs["peer"])
	require.Equal(t, "OK", h.attrs["code"])

	d, ok := h.attrs["dur"].(time.Duration)
	require.True(t, ok)
	require.Greater(t, d, time.Duration(0))
}

func TestLogging_GeneratesRequestID(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
	}{
		{"no metadata", context.Background()},
		{"oversized id", metadata.NewIncomingContext(context.Background(),
			metadata.New(map[string]string{MetadataRequestID: strings.Repeat("a", 200)}))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &capHandler{}
			_, err := Logging(slog.New(h))(tt.ctx, "req", &grpc.UnaryServerInfo{FullMethod: method},
				func(context.Context, any) (any, error) {
					return nil, status.Error(codes.InvalidArgument, "bad input")
				})
			require.Error(t, err)

			require.Equal(t, "InvalidArgument", h.attrs["code"])
			require.Equal(t, slog.LevelInfo, h.lastLvl)

			rid, _ := h.attrs["request_id"].(string)
			_, perr := uuid.Parse(rid)
			require.NoError(t, perr)
		})
	}
}

func TestLogging_InternalIsError(t *testing.T) {
	h := &capHandler{}
	_, err := Logging(slog.New(h))(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: method},
		func(context.Context, any) (any, error) {
			return nil, status.Error(codes.Internal, "db down")
		})
	require.Error(t, err)
	require.Equal(t, slog.LevelError, h.lastLvl)
	require.Equal(t, "Internal", h.attrs["code"])
}

func TestRecover_PanicToInternal(t *testing.T) {
	h := &capHandler{}

	resp, err := Recover(slog.New(h))(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: method},
		func(context.Context, any) (any, error) {
			panic("boom")
		})

	require.Nil(t, resp)
	require.Equal(t, codes.Internal, status.Code(err))
	require.Equal(t, "internal error", status.Convert(err).Message())

	require.Equal(t, slog.LevelError, h.lastLvl)
	require.Equal(t, "panic_recovered", h.lastMsg)
	require.Equal(t, method, h.attrs["method"])
	require.NotEmpty(t, h.attrs["panic"])

	stack, ok := h.attrs["stack"].(string)
	require.True(t, ok)
	require.NotEmpty(t, stack)
}

func TestRecover_NoPanic(t *testing.T) {
	h := &capHandler{}

	resp, err := Recover(slog.New(h))(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: method},
		func(context.Context, any) (any, error) {
			return "ok", nil
		})

	require.NoError(t, err)
	require.Equal(t, "ok", resp)
	require.Empty(t, h.lastMsg)
}

func TestTimeout(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: method}

	t.Run("sets deadline", func(t *testing.T) {
		const d = 30 * time.Millisecond
		start := time.Now()

		_, err := Timeout(d)(context.Background(), "req", info, func(ctx context.Context, _ any) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.GreaterOrEqual(t, time.Since(start), d)
	})

	t.Run("keeps existing deadline", func(t *testing.T) {
		parent, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
		defer cancel()
		want, _ := parent.Deadline()

		_, err := Timeout(time.Second)(parent, "req", info, func(ctx context.Context, _ any) (any, error) {
			got, ok := ctx.Deadline()
			require.True(t, ok)
			require.WithinDuration(t, want, got, time.Millisecond)
			return "ok", nil
		})
		require.NoError(t, err)
	})

	t.Run("zero is no-op", func(t *testing.T) {
		_, err := Timeout(0)(context.Background(), "req", info, func(ctx context.Context, _ any) (any, error) {
			_, ok := ctx.Deadline()
			require.False(t, ok)
			return "ok", nil
		})
		require.NoError(t, err)
	})
}
