package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	segkafka "github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Rath300/research-collab/internal/services/notification"
	"github.com/Rath300/research-collab/pkg/database"
	"github.com/Rath300/research-collab/pkg/health"
	"github.com/Rath300/research-collab/pkg/middleware"
	"github.com/Rath300/research-collab/pkg/realtime"
	appredis "github.com/Rath300/research-collab/pkg/redis"
	"github.com/Rath300/research-collab/pkg/routes"
	"github.com/Rath300/research-collab/pkg/startup"
)

const containerID = "research-collab"

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	defer a.startTracing(ctx)()

	var store database.DB

	start := startup.New(a.logger, a.cfg.StartupMaxAttempts)
	start.Add(startup.Func{
		Name: "database",
		StartFn: func(ctx context.Context) error {
			var err error
			store, err = a.connectDB(ctx)
			return err
		},
		StopFn: func(context.Context) error { return store.Close() },
	})
	start.Add(startup.Func{
		Name:     "migrations",
		Requires: []string{"database"},
		StartFn: func(context.Context) error {
			if !a.cfg.Database.MigrateOnStart {
				return nil
			}
			return a.migrate(store)
		},
	})
	if err := start.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := start.Stop(context.Background()); err != nil {
			a.logger.WithError(err).Warn("Failed to stop dependencies")
		}
	}()

	var hub *realtime.Hub
	rdb, err := a.connectRedis(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("Redis unavailable, realtime streams are disabled")
	} else {
		defer rdb.Close()
		hub = realtime.NewHub(rdb.Redis(), a.logger, realtime.SubscriberConfig{
			Prefix:  a.cfg.Realtime.ChannelPrefix,
			Timeout: a.cfg.Realtime.SubscribeTimeout,
		})
	}

	var publisher notification.EventPublisher
	if producer := a.notificationProducer(); producer != nil {
		defer producer.Close()
		publisher = producer
	}

	if _, err := routes.NewContainer(containerID, routes.Dependencies{
		DB:        store,
		Logger:    a.logger,
		Publisher: publisher,
		Storage:   a.objectStore(ctx),
		Searcher:  a.searcher(),
		Realtime:  hub,
	}); err != nil {
		return err
	}

	auth, err := a.authMiddleware(ctx)
	if err != nil {
		return err
	}

	checker := a.healthChecker(store, rdb)
	e := a.newEcho(checker, auth)

	errs := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", a.cfg.Port)
		a.logger.Infof("Listening on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()
	checker.SetReady(true)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	checker.SetReady(false)
	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func (a *app) newEcho(checker *health.Checker, auth echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.logger)
	e.Server.ReadTimeout = time.Duration(a.cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(a.cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(a.cfg.HttpServerIdleTimeoutSeconds) * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: a.cfg.AllowOrigins}))
	e.Use(echomw.BodyLimit(a.cfg.MaxBodyBytes))
	e.Use(otelecho.Middleware(a.cfg.AppName))
	e.Use(middleware.Context(containerID))
	e.Use(middleware.Logger(a.logger))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	checker.RegisterRoutes(e)
	routes.Register(e, auth)
	return e
}

// healthChecker requires the database. Redis and Kafka only degrade health.
func (a *app) healthChecker(store database.DB, rdb *appredis.Client) *health.Checker {
	checker := health.NewChecker(a.cfg.Version).
		Require("database", store.PingContext)

	if rdb != nil {
		checker.Optional("redis", rdb.Ping)
	} else if a.cfg.Redis.Enabled {
		checker.Optional("redis", func(context.Context) error { return errors.New("not connected") })
	}

	if a.cfg.Kafka.Enabled {
		brokers := a.cfg.Kafka.Brokers
		checker.Optional("kafka", func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			for _, broker := range brokers {
				conn, err := segkafka.DialContext(ctx, "tcp", broker)
				if err == nil {
					return conn.Close()
				}
			}
			return fmt.Errorf("no broker of %d reachable", len(brokers))
		})
	}
	return checker
}
