// Package sender собирает потребителя очереди напоминаний.
package sender

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/magabrotheeeer/subscription-tracker/internal/config"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	senderservice "github.com/magabrotheeeer/subscription-tracker/internal/services/sender"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

// App потребитель очереди и gRPC health.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	db            *repository.Storage
	senderService *senderservice.SenderService
	grpcServer    *grpc.Server
	health        *health.Server
	listener      net.Listener
	logger        *slog.Logger
}

// New подключается к базе и RabbitMQ и готовит health-сервер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = db.WaitReady(ctx, 10, 3*time.Second); err != nil {
		_ = db.Close()
		return nil, err
	}

	mailer, err := senderservice.NewMailer(cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, err
	}

	lis, err := net.Listen("tcp", cfg.GRPCHealthAddress)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to listen grpc health: %w", err)
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return &App{
		conn:          conn,
		ch:            ch,
		db:            db,
		senderService: senderservice.NewSenderService(mailer, db, metrics.Default(), logger),
		grpcServer:    grpcServer,
		health:        healthServer,
		listener:      lis,
		logger:        logger,
	}, nil
}

// Run читает очередь напоминаний до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("sender gRPC health listening on", slog.String("address", a.listener.Addr().String()))
		return a.grpcServer.Serve(a.listener)
	})
	g.Go(func() error {
		a.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		err := rabbitmq.ConsumerMessage(gctx, a.ch, rabbitmq.ReminderQueue, a.logger, a.senderService.HandleReminder)
		a.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		if err != nil {
			a.logger.Error("failed to consume reminder queue", sl.Err(err))
			return err
		}
		if gctx.Err() == nil {
			return fmt.Errorf("reminder queue consumer stopped")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Sender service shutting down gracefully")
		a.grpcServer.GracefulStop()
		return nil
	})

	err := g.Wait()

	if closeErr := a.ch.Close(); closeErr != nil {
		a.logger.Error("failed to close channel", sl.Err(closeErr))
	}
	if closeErr := a.conn.Close(); closeErr != nil {
		a.logger.Error("failed to close connection", sl.Err(closeErr))
	}
	if closeErr := a.db.Close(); closeErr != nil {
		a.logger.Error("failed to close database", sl.Err(closeErr))
	}
	return err
}
