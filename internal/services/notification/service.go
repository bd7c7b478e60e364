package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/civil"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/clock"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Способы доставки напоминаний.
const (
	DeliveryQueue  = "queue"
	DeliveryDirect = "direct"
)

// DefaultHistoryLimit сколько строк журнала отдавать по умолчанию.
const DefaultHistoryLimit = 50

var notificationTimeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ErrNoMailer возвращается, когда письмо нужно отправить сразу, а почта не настроена.
var ErrNoMailer = errors.New("mailer is not configured")

// ErrNoPublisher доставка через очередь выбрана, а брокер не подключен.
var ErrNoPublisher = errors.New("queue publisher is not configured")

// Repository методы хранилища, нужные планировщику.
type Repository interface {
	ListReminderCandidates(ctx context.Context) ([]models.ReminderCandidate, error)
	ClaimNotification(ctx context.Context, h models.NotificationHistory) (bool, error)
	MarkNotification(ctx context.Context, id string, status models.NotificationStatus, errMsg string, at time.Time) error
	ListNotificationHistory(ctx context.Context, userUID string, limit int) ([]models.NotificationHistory, error)
	GetSettings(ctx context.Context, userUID string) (*models.NotificationSettings, error)
	UpsertSettings(ctx context.Context, st models.NotificationSettings) (*models.NotificationSettings, error)
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// Publisher очередь напоминаний.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Mailer отправляет письмо сразу.
type Mailer interface {
	Send(ctx context.Context, email models.Email) error
}

// Options настройки планировщика.
type Options struct {
	Delivery string
	// MaxReminders ограничивает число отправок за проход, 0 без ограничений.
	MaxReminders int
}

// Service проход рассылки напоминаний и настройки пользователя.
type Service struct {
	repo      Repository
	publisher Publisher
	mailer    Mailer
	clock     clock.Clock
	loc       *time.Location
	opts      Options
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// New создает сервис. publisher нужен для доставки через очередь,
// mailer для прямой отправки и тестового письма.
func New(repo Repository, publisher Publisher, mailer Mailer, clk clock.Clock, loc *time.Location, opts Options, m *metrics.Metrics, log *slog.Logger) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if opts.Delivery == "" {
		opts.Delivery = DeliveryQueue
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		mailer:    mailer,
		clock:     clk,
		loc:       loc,
		opts:      opts,
		metrics:   m,
		log:       log,
	}
}

// Run выполняет один проход: находит совпавшие окна, занимает строку
// журнала на каждое и отправляет письмо. Ошибка по одному письму не
// прерывает проход.
func (s *Service) Run(ctx context.Context) (*models.RunResult, error) {
	const op = "notification.Run"
	now := s.clock.Now()
	res := &models.RunResult{
		RunID:         ulid.Make().String(),
		ProcessedDate: models.Date{Time: civil.Today(now, s.loc)},
		Details:       []models.RunDetail{},
	}
	log := s.log.With(slog.String("op", op), slog.String("run_id", res.RunID))

	candidates, err := s.repo.ListReminderCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("notification pass started",
		slog.String("date", res.ProcessedDate.String()),
		slog.Int("candidates", len(candidates)),
	)

	dispatched := 0
	for _, c := range candidates {
		for _, r := range Match(c, now, s.loc) {
			if ctx.Err() != nil {
				return res, fmt.Errorf("%s: %w", op, ctx.Err())
			}
			if s.opts.MaxReminders > 0 && dispatched >= s.opts.MaxReminders {
				log.Warn("reminder limit reached", slog.Int("limit", s.opts.MaxReminders))
				s.finish(res, now)
				return res, nil
			}
			detail := s.process(ctx, log, res, c, r, now)
			if detail.Status != models.DetailSkipped {
				dispatched++
			}
			res.Details = append(res.Details, detail)
		}
	}
	s.finish(res, now)
	log.Info("notification pass finished",
		slog.Int("sent", res.NotificationsSent),
		slog.Int("failed", res.NotificationsFailed),
		slog.Int("skipped", res.NotificationsSkipped),
	)
	return res, nil
}

func (s *Service) finish(res *models.RunResult, now time.Time) {
	for _, d := range res.Details {
		switch d.Status {
		case models.DetailSent, models.DetailQueued:
			res.NotificationsSent++
		case models.DetailFailed:
			res.NotificationsFailed++
		case models.DetailSkipped:
			res.NotificationsSkipped++
		}
	}
	s.metrics.NotificationRun(now)
}

func (s *Service) process(ctx context.Context, log *slog.Logger, res *models.RunResult, c models.ReminderCandidate, r Reminder, now time.Time) models.RunDetail {
	sub := c.Subscription
	email := Render(sub, r, c.Email)
	detail := models.RunDetail{
		SubscriptionID: sub.ID,
		UserUID:        sub.UserUID,
		Email:          c.Email,
		Type:           r.Type,
		DaysBefore:     r.DaysBefore,
	}
	log = log.With(sl.Sub(sub.ID), slog.String("type", string(r.Type)), slog.Int("days_before", r.DaysBefore))

	row := models.NotificationHistory{
		ID:             uuid.NewString(),
		RunID:          res.RunID,
		UserUID:        sub.UserUID,
		SubscriptionID: sub.ID,
		Type:           r.Type,
		DaysBefore:     r.DaysBefore,
		ScheduledFor:   res.ProcessedDate,
		EmailAddress:   c.Email,
		Subject:        email.Subject,
	}
	claimed, err := s.repo.ClaimNotification(ctx, row)
	if err != nil {
		log.Error("failed to claim notification", sl.Err(err))
		return s.failed(detail, err)
	}
	if !claimed {
		log.Debug("reminder already handled today")
		detail.Status = models.DetailSkipped
		s.metrics.Reminder(string(r.Type), detail.Status)
		return detail
	}

	if s.opts.Delivery == DeliveryQueue {
		if s.publisher == nil {
			s.mark(ctx, log, row.ID, models.StatusFailed, ErrNoPublisher.Error(), now)
			return s.failed(detail, ErrNoPublisher)
		}
		job := models.ReminderJob{
			NotificationID: row.ID,
			RunID:          res.RunID,
			UserUID:        sub.UserUID,
			SubscriptionID: sub.ID,
			Type:           r.Type,
			DaysBefore:     r.DaysBefore,
			Email:          email,
		}
		if err := s.publisher.Publish(ctx, rabbitmq.ReminderRoutingKey, job); err != nil {
			log.Error("failed to publish reminder", sl.Err(err))
			s.mark(ctx, log, row.ID, models.StatusFailed, err.Error(), now)
			return s.failed(detail, err)
		}
		detail.Status = models.DetailQueued
		s.metrics.Reminder(string(r.Type), detail.Status)
		return detail
	}

	if s.mailer == nil {
		s.mark(ctx, log, row.ID, models.StatusFailed, ErrNoMailer.Error(), now)
		return s.failed(detail, ErrNoMailer)
	}
	if err := s.mailer.Send(ctx, email); err != nil {
		log.Error("failed to send reminder", sl.Err(err))
		s.mark(ctx, log, row.ID, models.StatusFailed, err.Error(), now)
		return s.failed(detail, err)
	}
	s.mark(ctx, log, row.ID, models.StatusSent, "", s.clock.Now())
	log.Info("reminder sent", slog.String("to", c.Email))
	detail.Status = models.DetailSent
	s.metrics.Reminder(string(r.Type), detail.Status)
	return detail
}

func (s *Service) failed(detail models.RunDetail, err error) models.RunDetail {
	detail.Status = models.DetailFailed
	detail.Error = err.Error()
	s.metrics.Reminder(string(detail.Type), detail.Status)
	return detail
}

func (s *Service) mark(ctx context.Context, log *slog.Logger, id string, status models.NotificationStatus, msg string, at time.Time) {
	if err := s.repo.MarkNotification(ctx, id, status, msg, at); err != nil {
		log.Error("failed to update notification history", slog.String("notification_id", id), sl.Err(err))
	}
}

// Settings возвращает настройки пользователя или значения по умолчанию.
func (s *Service) Settings(ctx context.Context, userUID string) (*models.NotificationSettings, error) {
	const op = "notification.Settings"
	st, err := s.repo.GetSettings(ctx, userUID)
	if errors.Is(err, models.ErrNotFound) {
		def := models.DefaultNotificationSettings(userUID)
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return st, nil
}

// UpdateSettings заменяет настройки. Пустые время и пояс получают значения по умолчанию.
func (s *Service) UpdateSettings(ctx context.Context, userUID string, req models.SettingsRequest) (*models.NotificationSettings, error) {
	const op = "notification.UpdateSettings"
	st := models.NotificationSettings{
		UserUID:                   userUID,
		EmailNotificationsEnabled: req.EmailNotificationsEnabled,
		TrialNotificationDays:     dedupDays(req.TrialNotificationDays),
		PaymentNotificationDays:   dedupDays(req.PaymentNotificationDays),
		NotificationTime:          req.NotificationTime,
		Timezone:                  req.Timezone,
	}
	if st.NotificationTime == "" {
		st.NotificationTime = models.DefaultNotificationTime
	}
	if st.Timezone == "" {
		st.Timezone = models.DefaultTimezone
	}
	if !notificationTimeRe.MatchString(st.NotificationTime) {
		return nil, fmt.Errorf("%s: %w: notification_time must be HH:MM", op, models.ErrInvalidInput)
	}
	if _, err := time.LoadLocation(st.Timezone); err != nil {
		return nil, fmt.Errorf("%s: %w: unknown timezone %q", op, models.ErrInvalidInput, st.Timezone)
	}
	for _, d := range append(append([]int(nil), st.TrialNotificationDays...), st.PaymentNotificationDays...) {
		if d < 1 {
			return nil, fmt.Errorf("%s: %w: days must be positive", op, models.ErrInvalidInput)
		}
	}

	saved, err := s.repo.UpsertSettings(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}

func dedupDays(in []int) []int {
	out := make([]int, 0, len(in))
	seen := map[int]bool{}
	for _, d := range in {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

// History журнал напоминаний пользователя.
func (s *Service) History(ctx context.Context, userUID string, limit int) ([]models.NotificationHistory, error) {
	const op = "notification.History"
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	h, err := s.repo.ListNotificationHistory(ctx, userUID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if h == nil {
		h = []models.NotificationHistory{}
	}
	return h, nil
}

// SendTest отправляет пользователю проверочное письмо.
func (s *Service) SendTest(ctx context.Context, userUID string) (string, error) {
	const op = "notification.SendTest"
	if s.mailer == nil {
		return "", fmt.Errorf("%s: %w", op, ErrNoMailer)
	}
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := s.mailer.Send(ctx, TestEmail(user.Email)); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("test email sent", sl.User(userUID))
	return user.Email, nil
}
