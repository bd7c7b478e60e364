package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/subscription-tracker/internal/config"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/resend"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/smtp"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// LogMailer пишет письма в лог вместо отправки. Для локальной разработки.
type LogMailer struct {
	from string
	log  *slog.Logger
}

// NewLogMailer создает LogMailer.
func NewLogMailer(from string, log *slog.Logger) *LogMailer {
	return &LogMailer{from: from, log: log}
}

// Send реализует Mailer.
func (m *LogMailer) Send(_ context.Context, email models.Email) error {
	m.log.Info("mock email",
		slog.String("from", m.from),
		slog.Any("to", email.To),
		slog.String("subject", email.Subject),
		slog.String("body", email.Text),
	)
	return nil
}

// NewMailer выбирает почтовый транспорт по конфигу.
func NewMailer(cfg *config.Config, log *slog.Logger) (Mailer, error) {
	const op = "sender.NewMailer"
	switch cfg.Mailer.Provider {
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("%s: %w", op, errors.New("resend api key is not set"))
		}
		return resend.NewClient(cfg.ResendAPIKey, cfg.ResendBaseURL, cfg.Mailer.From, cfg.ResendTimeout), nil
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("%s: %w", op, errors.New("smtp host is not set"))
		}
		return smtp.NewMailer(smtp.NewTransport(cfg.SMTP), cfg.Mailer.From), nil
	case "log", "":
		return NewLogMailer(cfg.Mailer.From, log), nil
	default:
		return nil, fmt.Errorf("%s: unknown provider %q", op, cfg.Mailer.Provider)
	}
}
