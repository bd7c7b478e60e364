package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/clock"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/services/notification"
	senderservice "github.com/magabrotheeeer/subscription-tracker/internal/services/sender"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

func notifyCmd() *cobra.Command {
	var at, delivery string

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Run one reminder pass",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if delivery == "" {
				delivery = cfg.Delivery
			}
			log := newLogger()
			loc := cfg.Notification.Location()
			now, err := parseAt(at, loc)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := repository.New(ctx, cfg.StorageConnectionString)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			var (
				publisher notification.Publisher
				mailer    notification.Mailer
			)
			switch delivery {
			case notification.DeliveryQueue:
				conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
				if err != nil {
					return err
				}
				defer func() { _ = conn.Close() }()
				ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
				if err != nil {
					return err
				}
				defer func() { _ = ch.Close() }()
				publisher = rabbitmq.NewPublisher(ch, rabbitmq.Exchange)
			case notification.DeliveryDirect:
				mailer, err = senderservice.NewMailer(cfg, log)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown delivery %q", delivery)
			}

			svc := notification.New(db, publisher, mailer, clock.NewFixed(now), loc,
				notification.Options{Delivery: delivery, MaxReminders: cfg.MaxReminders}, metrics.Default(), log)
			res, err := svc.Run(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "pass moment, RFC3339 or YYYY-MM-DD")
	cmd.Flags().StringVar(&delivery, "delivery", "", "queue or direct, defaults to config")
	return cmd
}
