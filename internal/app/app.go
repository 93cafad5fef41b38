// Package app wires the FoodShorts order API.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Kmzf777/foodshorts/internal/domain/order"
	"github.com/Kmzf777/foodshorts/internal/events"
	"github.com/Kmzf777/foodshorts/internal/handler"
	"github.com/Kmzf777/foodshorts/internal/repository"
	"github.com/Kmzf777/foodshorts/pkg/health"
	"github.com/Kmzf777/foodshorts/pkg/httpmiddleware"
)

const serviceName = "foodshorts-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	policy, err := cfg.OrderPolicy()
	if err != nil {
		return err
	}

	// PostgreSQL pool + migrations.
	if err := repository.RunMigrations(cfg.DatabaseURL, lg); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	healthSvc := health.New()
	healthSvc.Add(health.Readiness, "postgres", health.PingCheck(pool), health.WithTimeout(5*time.Second))
	healthSvc.Add(health.Liveness, "goroutines", health.GoroutineCountCheck(10000))

	opts := order.Options{
		Tracer: m.TracerProvider().Tracer(serviceName),
		Meter:  m.MeterProvider().Meter(serviceName),
	}
	if cfg.RabbitURL != "" {
		publisher, err := events.Dial(cfg.RabbitURL)
		if err != nil {
			return errors.Wrap(err, "connect events")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				lg.Warn("Close event publisher", zap.Error(err))
			}
		}()
		opts.Events = publisher
		healthSvc.Add(health.Readiness, "rabbitmq", health.PingCheck(publisher))
	} else {
		lg.Warn("RabbitURL is not set, order events are disabled")
	}

	// Repositories.
	restaurantRepo := repository.NewRestaurantRepository(pool)
	orderService, err := order.NewService(policy,
		restaurantRepo,
		repository.NewProductRepository(pool),
		repository.NewOrderRepository(pool),
		repository.NewCustomerRepository(pool),
		opts,
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	router := handler.NewRouter(handler.NewHandler(orderService), handler.RouterConfig{
		Health:   healthSvc,
		Security: handler.NewSecurityHandler(restaurantRepo, []byte(cfg.Auth.JWTSecret)),
		SubmitLimit: httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
	})

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", handler.IdempotencyKeyHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader, handler.ReplayedHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument(serviceName, m),
		),
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		// Graceful shutdown: flip readiness, let balancers notice, then drain.
		<-gCtx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		if ctx.Err() != nil {
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		defer healthSvc.Stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}
