package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pribylovaa/agrichain-auth/internal/cache"
	"github.com/pribylovaa/agrichain-auth/internal/config"
	apphttp "github.com/pribylovaa/agrichain-auth/internal/http"
	"github.com/pribylovaa/agrichain-auth/internal/interceptors"
	"github.com/pribylovaa/agrichain-auth/internal/metrics"
	applog "github.com/pribylovaa/agrichain-auth/internal/pkg/log"
	"github.com/pribylovaa/agrichain-auth/internal/service"
	"github.com/pribylovaa/agrichain-auth/internal/storage"
	"github.com/pribylovaa/agrichain-auth/internal/storage/mongo"
	"github.com/pribylovaa/agrichain-auth/internal/storage/postgres"
	"github.com/pribylovaa/agrichain-auth/internal/tokens"
	authgrpc "github.com/pribylovaa/agrichain-auth/internal/transport/grpc"
)

// backend — хранилище с проверкой доступности для /healthz.
type backend interface {
	storage.Storage
	Ping(ctx context.Context) error
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := applog.New(cfg.Env, os.Stdout)
	slog.SetDefault(log)
	log.Info("starting application",
		slog.String("env", cfg.Env),
		slog.String("db_driver", cfg.DB.Driver),
		slog.String("revocation", cfg.Auth.Revocation),
	)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	if err := run(rootCtx, cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}

	log.Info("service_stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// Хранилище.
	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	st, err := openStorage(dbCtx, cfg.DB)
	dbCancel()
	if err != nil {
		return err
	}
	defer st.Close()
	log.Info("storage_connected", slog.String("driver", cfg.DB.Driver))

	readyChecks := []func(context.Context) error{st.Ping}

	// Отзыв refresh-токенов.
	var opts []tokens.Option
	switch cfg.Auth.Revocation {
	case config.RevocationStore:
		opts = append(opts, tokens.WithRevoker(st))
		startRevocationJanitor(ctx, st, log, 30*time.Minute)
	case config.RevocationRedis:
		rc, err := cache.NewRevocationCache(ctx, cfg.Redis.RedisURL, "")
		if err != nil {
			return err
		}
		defer rc.Close()

		opts = append(opts, tokens.WithRevoker(rc))
		readyChecks = append(readyChecks, rc.Ping)
		log.Info("redis_connected")
	}

	tm, err := tokens.New(cfg.Auth, opts...)
	if err != nil {
		return err
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	svc := service.New(st, tm, cfg.Auth)
	svc.SetEventRecorder(m)
	log.Info("service_initialized", slog.Bool("revocation_enabled", tm.RevocationEnabled()))

	var ready atomic.Bool
	readyChecks = append(readyChecks, func(context.Context) error {
		if !ready.Load() {
			return errors.New("not ready")
		}
		return nil
	})

	router := apphttp.NewRouter(svc, tm, apphttp.Options{
		Logger:         log,
		Timeout:        cfg.Timeouts.Service,
		BasePath:       "/api",
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		Metrics:        m,
		MetricsHandler: promhttp.Handler(),
		Ready:          readyChecks,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 2)

	go func() {
		log.Info("http_listen_start", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
	}()

	// Внутренний gRPC для остальных сервисов платформы.
	var (
		grpcServer *grpc.Server
		hs         *health.Server
	)
	if cfg.GRPC.Enabled {
		grpc_prometheus.EnableHandlingTimeHistogram()

		grpcServer = grpc.NewServer(
			grpc.ChainUnaryInterceptor(
				interceptors.Recover(log),
				interceptors.Logging(log),
				interceptors.Timeout(cfg.Timeouts.Service),
				grpc_prometheus.UnaryServerInterceptor,
			),
			grpc.ChainStreamInterceptor(
				grpc_prometheus.StreamServerInterceptor,
			),
		)

		hs = health.NewServer()
		healthpb.RegisterHealthServer(grpcServer, hs)
		authgrpc.RegisterTokenValidatorServer(grpcServer, authgrpc.NewTokenValidator(tm))

		if cfg.Env == applog.EnvLocal || cfg.Env == applog.EnvDev {
			reflection.Register(grpcServer)
		}

		grpc_prometheus.Register(grpcServer)

		lis, err := net.Listen("tcp", cfg.GRPC.Addr())
		if err != nil {
			_ = httpSrv.Close()
			return err
		}
		log.Info("grpc_listen_start", slog.String("addr", cfg.GRPC.Addr()))

		go func() {
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				serveErrCh <- err
			}
		}()

		hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		hs.SetServingStatus(authgrpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	}

	ready.Store(true)

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
		log.Error("serve_failed", slog.String("err", serveErr.Error()))
	}

	ready.Store(false)
	if hs != nil {
		hs.Shutdown()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_failed", slog.String("err", err.Error()))
	}

	if grpcServer != nil {
		done := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(done)
		}()

		select {
		case <-done:
			log.Info("grpc_stopped")
		case <-shutdownCtx.Done():
			log.Warn("grpc_force_stop")
			grpcServer.Stop()
		}
	}

	return serveErr
}

// openStorage подключает хранилище по db.driver; для postgres при db.migrate
// применяет встроенные миграции.
func openStorage(ctx context.Context, cfg config.DBConfig) (backend, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		st, err := mongo.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}

		return st, nil
	default:
		st, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}

		if cfg.Migrate {
			if err := st.Migrate(ctx); err != nil {
				st.Close()
				return nil, err
			}
		}

		return st, nil
	}
}

// startRevocationJanitor периодически удаляет записи об отзыве,
// срок действия которых истёк.
func startRevocationJanitor(ctx context.Context, st storage.RevokedTokenStorage, log *slog.Logger, period time.Duration) {
	go func() {
		t := time.NewTicker(period)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := st.DeleteExpiredTokens(ctx, time.Now().UTC()); err != nil {
					log.Error("revocation_janitor_failed", slog.String("err", err.Error()))
				}
			}
		}
	}()
}
