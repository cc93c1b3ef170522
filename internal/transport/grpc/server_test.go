package grpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/pribylovaa/agrichain-auth/internal/config"
	"github.com/pribylovaa/agrichain-auth/internal/interceptors"
	"github.com/pribylovaa/agrichain-auth/internal/models"
	"github.com/pribylovaa/agrichain-auth/internal/tokens"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newManager(t *testing.T, clk *clock) *tokens.Manager {
	t.Helper()
	tm, err := tokens.New(config.AuthConfig{
		JWTSecret:       "grpc-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "agrichain-auth",
		Audience:        []string{"agrichain-api"},
	}, tokens.WithClock(clk.Now))
	require.NoError(t, err)
	return tm
}

// startGRPC поднимает bufconn-сервер с интерсепторами и health-сервисом.
func startGRPC(t *testing.T, v Verifier) *grpc.ClientConn {
	t.Helper()

	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	lis := bufconn.Listen(1024 * 1024)
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		interceptors.Recover(lg),
		interceptors.Logging(lg),
		interceptors.Timeout(time.Second),
	))
	RegisterTokenValidatorServer(s, NewTokenValidator(v))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() { _ = s.Serve(lis) }()

	cc, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = cc.Close()
		s.Stop()
	})

	return cc
}

func TestValidateToken_Valid(t *testing.T) {
	clk := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	tm := newManager(t, clk)
	cl := NewClient(startGRPC(t, tm))

	uid := uuid.New()
	pair, err := tm.Issue(context.Background(), uid, models.RoleRegulator)
	require.NoError(t, err)

	resp, err := cl.ValidateToken(context.Background(), pair.AccessToken)
	require.NoError(t, err)

	m := resp.AsMap()
	require.Equal(t, true, m["valid"])
	require.Equal(t, uid.String(), m["user_id"])
	require.Equal(t, "regulator", m["role"])
	require.Equal(t, "2025-03-01T12:01:00Z", m["expires_at"])
}

func TestValidateToken_InvalidIsNotRPCError(t *testing.T) {
	clk := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	tm := newManager(t, clk)
	cl := NewClient(startGRPC(t, tm))

	pair, err := tm.Issue(context.Background(), uuid.New(), models.RoleFarmer)
	require.NoError(t, err)

	tests := []struct {
		name       string
		token      string
		advance    time.Duration
		wantReason string
	}{
		{"garbage", "not.a.jwt", 0, "invalid"},
		{"refresh token used as access", pair.RefreshToken, 0, "invalid"},
		{"expired", pair.AccessToken, time.Minute, "expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk.Advance(tt.advance)

			resp, err := cl.ValidateToken(context.Background(), tt.token)
			require.NoError(t, err)

			m := resp.AsMap()
			require.Equal(t, false, m["valid"])
			require.Equal(t, tt.wantReason, m["reason"])
			require.NotContains(t, m, "user_id")
		})
	}
}

func TestValidateToken_EmptyToken(t *testing.T) {
	clk := &clock{t: time.Now()}
	cl := NewClient(startGRPC(t, newManager(t, clk)))

	_, err := cl.ValidateToken(context.Background(), "")
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

type failingVerifier struct{ panicking bool }

func (f failingVerifier) VerifyAccess(string) (models.Identity, error) {
	if f.panicking {
		panic("verifier exploded")
	}
	return models.Identity{}, errors.New("hsm unavailable")
}

func TestValidateToken_InternalErrors(t *testing.T) {
	for _, v := range []failingVerifier{{}, {panicking: true}} {
		cl := NewClient(startGRPC(t, v))

		_, err := cl.ValidateToken(context.Background(), "tok")
		require.Equal(t, codes.Internal, status.Code(err))
		require.Equal(t, "internal error", status.Convert(err).Message())
	}
}

func TestHealth(t *testing.T) {
	cc := startGRPC(t, failingVerifier{})

	resp, err := healthpb.NewHealthClient(cc).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestValidateToken_DirectCall(t *testing.T) {
	srv := NewTokenValidator(failingVerifier{})
	_, err := srv.ValidateToken(context.Background(), wrapperspb.String(""))
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}
