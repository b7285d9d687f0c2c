package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/scriptgate/internal/api/http"
	"github.com/GriffinCanCode/scriptgate/internal/api/middleware"
	"github.com/GriffinCanCode/scriptgate/internal/api/ws"
	"github.com/GriffinCanCode/scriptgate/internal/domain/session"
	"github.com/GriffinCanCode/scriptgate/internal/domain/submission"
	"github.com/GriffinCanCode/scriptgate/internal/domain/validator"
	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/config"
	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/logging"
	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/tracing"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	workspaces *session.Manager
	tracer     *tracing.Tracer
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics

	stopSweep chan struct{}
	sweepDone chan struct{}
	closeOnce sync.Once
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Service:     "scriptgate",
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return newServer(cfg, logger)
}

func newServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	logger.Info("Initializing scriptgate",
		zap.String("port", cfg.Server.Port),
		zap.String("submission_dir", cfg.Submission.Dir),
		zap.Duration("sandbox_timeout", cfg.Sandbox.Timeout),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("scriptgate", logger)

	engine, err := validator.New(cfg.ValidatorConfig())
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to compile rule catalog: %w", err)
	}
	logger.Info("Rule catalog compiled", zap.Int("rules", len(engine.Rules())))
	v := monitoring.InstrumentValidator(engine, metrics)

	store, err := submission.NewStore(cfg.Submission.Dir, v)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to open submission store: %w", err)
	}

	errorLog := submission.NewErrorLog(cfg.Workspace.ErrorLogSize,
		logging.NewZapSink(logger.Component("client")))

	workspaces := session.NewManager(session.NewBuilder(session.BuildConfig{
		Sandbox:     cfg.SandboxConfig(),
		Validator:   v,
		Metrics:     metrics,
		Logger:      logger,
		ContainerID: cfg.Sandbox.ContainerID,
		ConsoleSize: cfg.Workspace.ConsoleSize,
	}), cfg.Workspace.Limit)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins...)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}
	router.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	handlers := apihttp.NewHandlers(apihttp.Deps{
		Validator:  v,
		Workspaces: workspaces,
		Store:      store,
		ErrorLog:   errorLog,
		Metrics:    metrics,
		Tracer:     tracer,
		Logger:     logger,
	})
	handlers.Register(router)

	wsHandler := ws.NewHandler(v, workspaces, metrics, logger, cfg.Server.CORSOrigins)
	router.GET("/security/stream", middleware.Session(), wsHandler.HandleConnection)

	s := &Server{
		router:     router,
		workspaces: workspaces,
		tracer:     tracer,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
		stopSweep:  make(chan struct{}),
		sweepDone:  make(chan struct{}),
	}
	go s.sweep()

	logger.Info("Server initialized successfully")
	return s, nil
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// sweep closes workspaces idle for longer than the configured timeout.
func (s *Server) sweep() {
	defer close(s.sweepDone)

	idle := s.config.Workspace.IdleTimeout
	if idle <= 0 {
		<-s.stopSweep
		return
	}

	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.workspaces.Sweep(idle); n > 0 {
				s.logger.Info("Closed idle workspaces", zap.Int("count", n))
			}
		case <-s.stopSweep:
			return
		}
	}
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Info("Shutting down server...")

		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if serr := s.httpServer.Shutdown(ctx); serr != nil {
				s.logger.Error("HTTP shutdown failed", zap.Error(serr))
				err = fmt.Errorf("failed to shut down http server: %w", serr)
			}
		}

		close(s.stopSweep)
		<-s.sweepDone

		s.workspaces.CloseAll()
		s.logger.Info("Closed sandbox workspaces")

		s.tracer.Close()
		_ = s.logger.Sync()
	})
	return err
}
