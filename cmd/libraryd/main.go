package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bookstore/services/library/internal/catalog"
	"github.com/bookstore/services/library/internal/config"
	"github.com/bookstore/services/library/internal/db"
	"github.com/bookstore/services/library/internal/events"
	grpcserver "github.com/bookstore/services/library/internal/grpc"
	"github.com/bookstore/services/library/internal/httpapi"
	"github.com/bookstore/services/library/internal/lending"
	"github.com/bookstore/services/library/internal/lock"
	"github.com/bookstore/services/library/internal/members"
	"github.com/bookstore/services/library/internal/metrics"
	"github.com/bookstore/services/library/pkg/logger"
)

func main() {
	os.Exit(serve())
}

// serve runs the daemon and returns the process exit status. The logger is
// flushed before it returns.
func serve() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return 1
	}

	log := logger.NewLogger(cfg.ServiceName, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("Library service stopped with error", zap.Error(err))
		return 1
	}
	log.Info("Server stopped")
	return 0
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("Library service starting", zap.String("db_driver", cfg.DBDriver))

	database, err := db.Open(cfg.DBDriver, cfg.PGDSN, cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	log.Info("Running database migrations...")
	if err := db.RunMigrations(database); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		log.Info("Connecting to RabbitMQ")
		rabbit, err := events.NewRabbitPublisher(cfg.RabbitMQURL, log)
		if err != nil {
			return err
		}
		publisher = rabbit
	} else {
		log.Warn("RABBITMQ_URL not set, domain events are dropped")
	}
	defer publisher.Close()

	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.RedisAddr != "" {
		redisLocker, err := lock.NewRedisLocker(cfg.RedisAddr, 0, log)
		if err != nil {
			return err
		}
		defer redisLocker.Close()
		locker = redisLocker
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	api := httpapi.NewHandler(
		catalog.NewService(database, publisher, m, log),
		members.NewService(database, publisher, m, log),
		lending.NewEngine(database, publisher, m, log,
			lending.WithLocker(locker),
			lending.WithBorrowingPeriod(cfg.BorrowingPeriodDays),
		),
		log,
	)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpapi.NewRouter(api, database, publisher, reg, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	grpcServer := grpcserver.NewServer(database, publisher, log)
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen on gRPC port: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("Starting gRPC server", zap.String("address", grpcListener.Addr().String()))
		return grpcServer.Serve(grpcListener)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}
		grpcServer.GracefulStop()
		return nil
	})

	return g.Wait()
}
