// Package app wires configuration, storage and transports into a process.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"clinic-scheduler/internal/api"
	"clinic-scheduler/internal/auth"
	"clinic-scheduler/internal/config"
	"clinic-scheduler/internal/database"
	"clinic-scheduler/internal/grpcweb"
	"clinic-scheduler/internal/handler"
	"clinic-scheduler/internal/metrics"
	"clinic-scheduler/internal/middleware"
	"clinic-scheduler/internal/scheduling"
	"clinic-scheduler/internal/session"
	"clinic-scheduler/internal/store"
	"clinic-scheduler/internal/worker/reaper"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg      *config.Config
	log      zerolog.Logger
	pool     *pgxpool.Pool
	redis    *redis.Client
	store    *store.Store
	sessions *session.Manager
	registry *prometheus.Registry
	metrics  *metrics.Collector
	sched    *scheduling.Service
	authn    *auth.Authenticator
	gate     *auth.Gate
}

// New connects to the database (and Redis when configured) and builds
// the services. Close releases the connections.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	pool, err := database.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, log: log, pool: pool, store: store.New(pool)}

	backend, err := a.sessionBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.sessions, err = session.NewManager(backend, cfg.SessionTTL, session.WithTimeout(cfg.StoreTimeout))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.NewCollector(a.registry)

	a.sched = scheduling.NewService(a.store,
		scheduling.WithStoreTimeout(cfg.StoreTimeout),
		scheduling.WithStrictTransitions(cfg.StrictStatusTransitions),
		scheduling.WithLogger(log.With().Str("component", "scheduling").Logger()),
		scheduling.WithRecorder(a.metrics),
	)
	a.authn = auth.NewAuthenticator(a.store, a.sessions, auth.WithLookupTimeout(cfg.StoreTimeout))
	a.gate = auth.NewGate(a.sessions, cfg.AdminTokenSecret)
	return a, nil
}

func (a *App) sessionBackend(ctx context.Context) (session.Backend, error) {
	switch a.cfg.SessionBackend {
	case config.BackendRedis:
		rc, err := session.NewRedisClient(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		a.redis = rc
		return session.NewRedisStore(rc), nil
	case config.BackendMemory:
		a.log.Warn().Msg("sessions are kept in memory and lost on restart")
		return session.NewMemoryStore(), nil
	default:
		return a.store.Sessions(), nil
	}
}

// Sessions exposes the session manager for one-off commands.
func (a *App) Sessions() *session.Manager { return a.sessions }

func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.pool.Close()
}

func (a *App) grpcServer(rl *middleware.RateLimiter) *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		middleware.Logging(a.log.With().Str("transport", "grpc").Logger(), a.metrics),
		middleware.RateLimit(rl, handler.MethodLogin),
		middleware.Auth(a.gate, handler.ToStatus, append(handler.OpenMethods, healthpb.Health_Check_FullMethodName)...),
	))
	handler.Register(srv, handler.New(a.sched, a.authn, a.log.With().Str("transport", "grpc").Logger()))

	hs := health.NewServer()
	hs.SetServingStatus(handler.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

// Run serves REST, gRPC and gRPC-Web and reaps sessions until ctx is
// cancelled, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	rl := middleware.NewRateLimiter(a.cfg.LoginRateRPS, a.cfg.LoginRateBurst)
	defer rl.Stop()

	restSrv := &http.Server{
		Addr: ":" + a.cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterDeps{
			Scheduling:   a.sched,
			Auth:         a.authn,
			Gate:         a.gate,
			Health:       a.store,
			Log:          a.log.With().Str("transport", "http").Logger(),
			LoginLimiter: rl,
			CORSOrigins:  a.cfg.CORSOrigins,
			Metrics:      a.metrics,
			Gatherer:     a.registry,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv := a.grpcServer(rl)
	lis, err := net.Listen("tcp", ":"+a.cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	bridge, err := grpcweb.New("localhost:"+a.cfg.GRPCPort, a.log)
	if err != nil {
		lis.Close()
		return err
	}
	defer bridge.Close()
	webSrv := &http.Server{
		Addr:              ":" + a.cfg.WebPort,
		Handler:           bridge.Handler(a.cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	job := reaper.New(a.sessions, a.cfg.SessionReapInterval, a.log, a.metrics)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info().Str("addr", restSrv.Addr).Msg("rest listening")
		return serveHTTP(restSrv)
	})
	g.Go(func() error {
		a.log.Info().Str("addr", lis.Addr().String()).Msg("grpc listening")
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		a.log.Info().Str("addr", webSrv.Addr).Msg("grpc-web listening")
		return serveHTTP(webSrv)
	})
	g.Go(func() error { return job.Run(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		a.log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcSrv.GracefulStop()
		return errors.Join(restSrv.Shutdown(sctx), webSrv.Shutdown(sctx))
	})
	return g.Wait()
}

func serveHTTP(s *http.Server) error {
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
