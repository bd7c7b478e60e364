// Package scheduler собирает планировщик напоминаний: cron и HTTP-триггер.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/subscription-tracker/internal/config"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/notification/run"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/clock"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/services/notification"
	schedulerservice "github.com/magabrotheeeer/subscription-tracker/internal/services/scheduler"
	senderservice "github.com/magabrotheeeer/subscription-tracker/internal/services/sender"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

const (
	dbAttempts      = 10
	dbRetryDelay    = 3 * time.Second
	shutdownTimeout = 10 * time.Second
)

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.SchedulerService
	server           *http.Server
	db               *repository.Storage
	conn             *amqp.Connection
	ch               *amqp.Channel
	logger           *slog.Logger
}

// New создает новый экземпляр приложения планировщика. В режиме queue
// открывается канал RabbitMQ, в режиме direct письма уходят сразу.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err = db.WaitReady(ctx, dbAttempts, dbRetryDelay); err != nil {
		_ = db.Close()
		return nil, err
	}

	var (
		conn      *amqp.Connection
		ch        *amqp.Channel
		publisher notification.Publisher
		mailer    notification.Mailer
	)
	if cfg.Delivery == notification.DeliveryQueue {
		conn, err = rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
		}
		ch, err = rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
		if err != nil {
			closeResources(nil, conn, logger)
			_ = db.Close()
			return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
		}
		publisher = rabbitmq.NewPublisher(ch, rabbitmq.Exchange)
	} else {
		mailer, err = senderservice.NewMailer(cfg, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	notificationService := notification.New(db, publisher, mailer, clock.Real{}, cfg.Notification.Location(),
		notification.Options{Delivery: cfg.Delivery, MaxReminders: cfg.MaxReminders}, metrics.Default(), logger)

	schedulerService, err := schedulerservice.NewSchedulerService(notificationService, cfg.Cron, cfg.Notification.Location(), logger)
	if err != nil {
		closeResources(ch, conn, logger)
		_ = db.Close()
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID, middleware.Recoverer)
	router.Handle("/metrics", promhttp.Handler())
	router.Group(func(r chi.Router) {
		r.Use(middlewarectx.CronSecretMiddleware(cfg.CronSecret, logger))
		r.Post("/api/v1/notifications/run", run.New(logger, schedulerService).ServeHTTP)
	})

	return &App{
		schedulerService: schedulerService,
		server: &http.Server{
			Addr:              cfg.TriggerAddr,
			Handler:           router,
			ReadHeaderTimeout: cfg.TimeoutHTTP,
		},
		db:     db,
		conn:   conn,
		ch:     ch,
		logger: logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
}

// Run запускает cron и HTTP-триггер до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.schedulerService.Start(gctx) })
	g.Go(func() error {
		a.logger.Info("trigger server listening on", slog.String("address", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.logger.Info("shutting down scheduler service")
	closeResources(a.ch, a.conn, a.logger)
	if closeErr := a.db.Close(); closeErr != nil {
		a.logger.Error("failed to close database", sl.Err(closeErr))
	}
	return err
}
