// Package server owns the boot sequence and graceful shutdown of the
// storefront process.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oliveedge/oliveedge/app/jobs"
	"github.com/oliveedge/oliveedge/app/routes"
	"github.com/oliveedge/oliveedge/app/services"
	"github.com/oliveedge/oliveedge/config"
	"github.com/oliveedge/oliveedge/pkg/cache"
	"github.com/oliveedge/oliveedge/pkg/database"
	"github.com/oliveedge/oliveedge/pkg/logger"
	"github.com/oliveedge/oliveedge/pkg/metrics"
	"github.com/oliveedge/oliveedge/pkg/middleware"
	"github.com/oliveedge/oliveedge/pkg/queue"
	"github.com/oliveedge/oliveedge/pkg/reqid"
	"github.com/oliveedge/oliveedge/pkg/router"
	"github.com/oliveedge/oliveedge/pkg/schedule"
	"github.com/oliveedge/oliveedge/pkg/storage"
	"github.com/oliveedge/oliveedge/pkg/workerpool"
	"github.com/oliveedge/oliveedge/pkg/ws"
)

const (
	queueWorkers       = 4
	analyticsPoolSize  = 8
	shutdownTimeout    = 15 * time.Second
	unpaidOrderMaxAge  = 24 * time.Hour
	expirySweepMinutes = 15
)

// Start boots every subsystem and serves HTTP until SIGINT/SIGTERM.
func Start() error {
	if err := config.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := database.Connect(bootCtx); err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer database.Disconnect(context.Background()) //nolint:errcheck

	if err := database.EnsureIndexes(bootCtx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	// Production logs also land in the logs collection.
	if config.AppEnv() == "production" {
		if mh, err := logger.NewMongoHandler(config.MongoURI(), config.MongoDatabase(), "logs"); err == nil {
			logger.UseHandler(logger.NewMultiHandler(
				slog.NewJSONHandler(os.Stdout, nil), mh))
			defer mh.Close()
		} else {
			logger.Warn("boot: mongo log handler unavailable", "error", err)
		}
	}

	// Redis is optional: cache misses and cart reads degrade gracefully.
	if err := cache.Connect(bootCtx); err != nil {
		logger.Warn("boot: redis unavailable, caching disabled", "error", err)
	}

	storage.Connect()

	// Background jobs: redis-backed queue when available, with failures
	// persisted to the failed_jobs collection.
	queue.UseCollection(database.Collection("failed_jobs"))
	if cache.RDB != nil {
		queue.SetDriver(queue.NewRedisDriver(cache.RDB))
	}
	jobs.Register()
	queue.StartWorkers(ctx, queueWorkers)

	go ws.TrackingHub.Run()

	pool := workerpool.New(analyticsPoolSize)
	defer pool.Shutdown()

	orders := services.NewOrderService()

	schedule.Every(expirySweepMinutes).Minutes().
		Name("orders:expire-unpaid").
		WithoutOverlapping().
		Run(func() {
			sweepCtx, sweepCancel := context.WithTimeout(context.Background(), time.Minute)
			defer sweepCancel()
			orders.ExpireUnpaid(sweepCtx, unpaidOrderMaxAge)
		})
	schedule.Start(ctx)

	r := router.New()
	r.Use(
		metrics.Middleware(),
		reqid.Middleware(),
		middleware.Recovery,
		middleware.Logger,
		middleware.CORS(middleware.DefaultCORSOptions()),
		middleware.RateLimit(300, time.Minute),
	)
	routes.RegisterAPI(r, orders, pool)

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("boot: listening", "addr", srv.Addr, "env", config.AppEnv())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("boot: shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
