// Package api implements app.Runner for the API server process.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/norchain/bridge-middleware/internal/metrics"
	apphttp "github.com/norchain/bridge-middleware/pkg/app/http"
	"github.com/norchain/bridge-middleware/pkg/auth"
	"github.com/norchain/bridge-middleware/pkg/chain"
	"github.com/norchain/bridge-middleware/pkg/config"
	"github.com/norchain/bridge-middleware/pkg/pgutil"
	"github.com/norchain/bridge-middleware/pkg/policy"
	"github.com/norchain/bridge-middleware/pkg/proof"
	"github.com/norchain/bridge-middleware/pkg/quote"
	"github.com/norchain/bridge-middleware/pkg/settlement"
	"github.com/norchain/bridge-middleware/pkg/transfer/service"
	"github.com/norchain/bridge-middleware/pkg/transferstore"
)

const defaultRequestTimeout = 60

// Server holds cfg to init the api server.
type Server struct {
	cfg *config.Config
}

// NewServer initializes new api server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("api server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting bridge API server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer db.Close()

	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
	)

	store := transferstore.NewStore(db)

	chainClient, err := chain.NewEVMClient(cfg.Chains.Endpoints, chain.EVMClientOptions{
		RequestTimeout:  cfg.Chains.RequestTimeout,
		BreakerMaxFails: cfg.Chains.BreakerMaxFails,
		BreakerCooldown: cfg.Chains.BreakerCooldown,
	}, logger)
	if err != nil {
		return fmt.Errorf("create chain client: %w", err)
	}
	defer chainClient.Close()

	oracle := chain.NewFinalityOracle(chainClient)

	engine, err := s.buildQuoteEngine(logger)
	if err != nil {
		return err
	}

	gate, err := policy.NewRuleGate(cfg.Policy, logger)
	if err != nil {
		return fmt.Errorf("create policy gate: %w", err)
	}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)

	transferService := service.NewLog(
		service.NewService(store, gate, oracle, recorder, logger),
		logger,
	)

	worker := settlement.New(
		store,
		transferService,
		oracle,
		proof.NewStubIssuer(),
		cfg.Settlement,
		registry,
		logger,
	)
	worker.Start()
	// We will call worker.Stop explicitly after ServeAndWait returns for
	// deterministic shutdown order. Keep this defer as a safety net.
	defer worker.Stop()

	router := s.setupRouter(transferService, engine, registry, logger)

	err = apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)

	// Stop background work before deferred DB/client closes kick in.
	worker.Stop()

	return err
}

func (s *Server) buildQuoteEngine(logger *zap.Logger) (*quote.Engine, error) {
	if s.cfg.Routes.File == "" {
		return quote.NewEngine(), nil
	}

	table, err := quote.LoadRouteTable(s.cfg.Routes.File)
	if err != nil {
		return nil, fmt.Errorf("load route table: %w", err)
	}
	logger.Info("Loaded route table overrides", zap.String("file", s.cfg.Routes.File))

	return quote.NewEngine(quote.WithRouteTable(table)), nil
}

func (s *Server) setupRouter(
	transferService service.Service,
	engine *quote.Engine,
	registry *prometheus.Registry,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Second * defaultRequestTimeout))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	verifier := auth.NewTokenVerifier(s.cfg.Auth.JWTSecret, s.cfg.Auth.JWTIssuer)
	r.Route("/bridge", func(r chi.Router) {
		// Quoting is read-only and needs no caller identity.
		quote.RegisterRoutes(r, engine, logger)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(verifier, logger))
			service.RegisterRoutes(r, transferService, logger)
		})
	})

	return r
}
