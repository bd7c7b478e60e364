// Package sender доставляет напоминания из очереди и отмечает результат в журнале.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/clock"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Mailer отправляет письмо.
type Mailer interface {
	Send(ctx context.Context, email models.Email) error
}

// Repository журнал напоминаний.
type Repository interface {
	MarkNotification(ctx context.Context, id string, status models.NotificationStatus, errMsg string, at time.Time) error
}

// SenderService обрабатывает сообщения очереди напоминаний.
type SenderService struct {
	mailer  Mailer
	repo    Repository
	clock   clock.Clock
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(mailer Mailer, repo Repository, m *metrics.Metrics, log *slog.Logger) *SenderService {
	return &SenderService{
		mailer:  mailer,
		repo:    repo,
		clock:   clock.Real{},
		metrics: m,
		log:     log,
	}
}

// HandleReminder разбирает ReminderJob, отправляет письмо и обновляет
// строку журнала. Ошибка отправки возвращается, повторной попытки нет.
func (s *SenderService) HandleReminder(ctx context.Context, body []byte) error {
	const op = "sender.HandleReminder"
	var job models.ReminderJob
	if err := json.Unmarshal(body, &job); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	log := s.log.With(
		slog.String("op", op),
		slog.String("notification_id", job.NotificationID),
		slog.String("run_id", job.RunID),
		sl.Sub(job.SubscriptionID),
	)
	if len(job.Email.To) == 0 {
		s.mark(ctx, log, job.NotificationID, models.StatusFailed, "no recipient")
		return fmt.Errorf("%s: %w: no recipient", op, models.ErrInvalidInput)
	}

	if err := s.mailer.Send(ctx, job.Email); err != nil {
		log.Error("failed to send reminder", sl.Err(err))
		s.mark(ctx, log, job.NotificationID, models.StatusFailed, err.Error())
		s.metrics.Reminder(string(job.Type), models.DetailFailed)
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mark(ctx, log, job.NotificationID, models.StatusSent, "")
	s.metrics.Reminder(string(job.Type), models.DetailSent)
	log.Info("email sent successfully", slog.Any("to", job.Email.To))
	return nil
}

func (s *SenderService) mark(ctx context.Context, log *slog.Logger, id string, status models.NotificationStatus, msg string) {
	if id == "" || s.repo == nil {
		return
	}
	if err := s.repo.MarkNotification(ctx, id, status, msg, s.clock.Now()); err != nil {
		log.Error("failed to update notification history", sl.Err(err))
	}
}
