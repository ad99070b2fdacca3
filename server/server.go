package server

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/mkasajim/realtime-gmail-monitor/config"
	"github.com/mkasajim/realtime-gmail-monitor/dto"
	"github.com/mkasajim/realtime-gmail-monitor/interfaces"
	"github.com/mkasajim/realtime-gmail-monitor/internal"
	"github.com/mkasajim/realtime-gmail-monitor/internal/cron"
	"github.com/mkasajim/realtime-gmail-monitor/internal/logger"
	"github.com/mkasajim/realtime-gmail-monitor/internal/registry"
	"github.com/mkasajim/realtime-gmail-monitor/internal/repository"
	"github.com/mkasajim/realtime-gmail-monitor/internal/tracing"
	"github.com/mkasajim/realtime-gmail-monitor/services"
)

type Server struct {
	config       *config.Config
	log          logger.Logger
	httpServer   *http.Server
	router       *gin.Engine
	services     *services.Services
	repositories *repository.Repositories
	registry     *registry.Registry
	cron         *cron.CronManager
	tracerCloser io.Closer
}

func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize logger
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	// Initialize tracing
	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		log.Fatalf("Could not initialize jaeger tracer: %s", err.Error())
	}
	opentracing.SetGlobalTracer(tracer)

	// Initialize repositories
	repos := repository.InitRepositories()

	accountRegistry := registry.NewRegistry()

	// Initialize services
	svcs, err := services.InitServices(context.Background(), cfg, appLogger, repos, accountRegistry)
	if err != nil {
		return nil, err
	}

	// Initialize Gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	return &Server{
		config:       cfg,
		log:          appLogger,
		router:       router,
		services:     svcs,
		repositories: repos,
		registry:     accountRegistry,
		cron:         cron.NewCronManager(cfg, appLogger, accountRegistry),
		tracerCloser: closer,
		httpServer: &http.Server{
			Addr:    ":" + cfg.AppConfig.StatusPort,
			Handler: router,
		},
	}, nil
}

func (s *Server) Initialize(ctx context.Context) error {
	if err := internal.InitAccounts(ctx, s.config, s.log, s.repositories, s.registry); err != nil {
		return err
	}

	// Verify the bus is reachable before committing to the subscription
	if err := s.services.Bus.Check(ctx); err != nil {
		return err
	}

	s.registerRoutes(ctx)
	return nil
}

func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Initialize(ctx); err != nil {
		return err
	}

	s.cron.StartCron()

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("Status server failed: %v", err)
		}
	}()

	s.logMonitoringBanner()

	listenDone := make(chan error, 1)
	go func() {
		listenDone <- s.services.Bus.Listen(ctx, s.handleNotification)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.log.Infof("Received signal %s, shutting down", sig)
	case err := <-listenDone:
		if err != nil {
			s.log.Errorf("Notification listener stopped: %v", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("Status server shutdown failed: %v", err)
	}

	s.cron.Stop()

	if err := s.services.Bus.Close(); err != nil {
		s.log.Errorf("Failed to close notification bus: %v", err)
	}
	if s.tracerCloser != nil {
		_ = s.tracerCloser.Close()
	}

	s.log.Info("Gmail monitor stopped")
	return nil
}

func (s *Server) handleNotification(ctx context.Context, notification dto.Notification) {
	s.services.ReconcilerService.Reconcile(ctx, notification)
}

func (s *Server) registerRoutes(ctx context.Context) {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.router.GET("/status", tracing.TracingEnhancer(ctx, "GET /status"), func(c *gin.Context) {
		accounts := make([]interfaces.AccountStatus, 0, s.registry.Len())
		for _, account := range s.registry.All() {
			accounts = append(accounts, account.Status())
		}
		c.JSON(http.StatusOK, gin.H{
			"accounts":       accounts,
			"dedupCacheSize": s.services.DisplayService.CachedIds(),
		})
	})
}

func (s *Server) logMonitoringBanner() {
	names := make([]string, 0, s.registry.Len())
	for _, account := range s.registry.All() {
		names = append(names, account.Account.Name+" ("+account.Account.Email+")")
	}
	s.log.Infof("Monitoring %d accounts: %s", s.registry.Len(), strings.Join(names, ", "))
}
