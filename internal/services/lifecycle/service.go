package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/civil"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/clock"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Repository хранилище подписок, которое умеет атомарно применить переход.
type Repository interface {
	ListSubscriptions(ctx context.Context, userUID string) ([]*models.Subscription, error)
	ListDueSubscriptions(ctx context.Context, today models.Date) ([]*models.Subscription, error)
	ApplyTransition(ctx context.Context, from, to models.Subscription, entry *models.PaymentHistoryEntry) (applied, created bool, err error)
}

// ChangeNotifier сбрасывает кэш и сообщает клиентам об изменении подписки.
type ChangeNotifier interface {
	SubscriptionChanged(ctx context.Context, ev models.ChangeEvent)
}

// Failure подписка, переход которой не удалось применить.
type Failure struct {
	SubscriptionID string `json:"subscription_id"`
	Error          string `json:"error"`
}

// EvaluationResult итог прохода.
type EvaluationResult struct {
	Today     models.Date  `json:"today"`
	Evaluated int          `json:"evaluated"`
	Applied   []Transition `json:"applied"`
	// Duplicates переходы, для которых строка истории за сегодня уже была.
	// Продление оплачиваемой подписки в этом случае не применяется.
	Duplicates int `json:"duplicates"`
	// Stale переходы, пропущенные из-за параллельного изменения подписки.
	Stale  int       `json:"stale"`
	Failed []Failure `json:"failed"`
}

// Service применяет результат Evaluate к хранилищу.
type Service struct {
	repo     Repository
	notifier ChangeNotifier
	clock    clock.Clock
	loc      *time.Location
	opts     Options
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// NewService создает сервис. notifier и m могут быть nil.
func NewService(repo Repository, notifier ChangeNotifier, clk clock.Clock, loc *time.Location, opts Options, m *metrics.Metrics, log *slog.Logger) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		clock:    clk,
		loc:      loc,
		opts:     opts,
		metrics:  m,
		log:      log,
	}
}

// EvaluateUser пересчитывает подписки одного пользователя.
func (s *Service) EvaluateUser(ctx context.Context, userUID string) (*EvaluationResult, error) {
	const op = "lifecycle.EvaluateUser"
	subs, err := s.repo.ListSubscriptions(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.apply(ctx, s.clock.Now(), subs), nil
}

// EvaluateAll пересчитывает подписки всех пользователей.
func (s *Service) EvaluateAll(ctx context.Context) (*EvaluationResult, error) {
	const op = "lifecycle.EvaluateAll"
	now := s.clock.Now()
	today := models.Date{Time: civil.Today(now, s.loc)}
	subs, err := s.repo.ListDueSubscriptions(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	res := s.apply(ctx, now, subs)
	s.metrics.LifecycleRun(now)
	return res, nil
}

func (s *Service) apply(ctx context.Context, now time.Time, subs []*models.Subscription) *EvaluationResult {
	plain := make([]models.Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub != nil {
			plain = append(plain, *sub)
		}
	}

	res := &EvaluationResult{
		Today:     models.Date{Time: civil.Today(now, s.loc)},
		Evaluated: len(plain),
		Applied:   []Transition{},
		Failed:    []Failure{},
	}

	for _, tr := range Evaluate(now, s.loc, plain, s.opts) {
		if err := ctx.Err(); err != nil {
			res.Failed = append(res.Failed, Failure{SubscriptionID: tr.From.ID, Error: err.Error()})
			continue
		}
		tr.Payment.ID = uuid.NewString()
		payment := tr.Payment

		applied, created, err := s.repo.ApplyTransition(ctx, tr.From, tr.To, &payment)
		if errors.Is(err, models.ErrAlreadyExists) {
			// Списание за сегодня уже учтено, повторный проход подписку не двигает.
			s.log.Debug("payment already recorded today, skipping", sl.Sub(tr.From.ID))
			res.Duplicates++
			continue
		}
		if err != nil {
			s.log.Error("failed to apply transition", sl.Sub(tr.From.ID), slog.String("rule", string(tr.Rule)), sl.Err(err))
			res.Failed = append(res.Failed, Failure{SubscriptionID: tr.From.ID, Error: err.Error()})
			continue
		}
		if !applied {
			s.log.Debug("subscription changed concurrently, skipping", sl.Sub(tr.From.ID))
			res.Stale++
			continue
		}
		if !created {
			res.Duplicates++
		}
		res.Applied = append(res.Applied, tr)
		s.metrics.Transition(string(tr.Rule), created)
		s.log.Info("subscription transition applied",
			sl.Sub(tr.From.ID),
			slog.String("rule", string(tr.Rule)),
			slog.String("next_payment", tr.To.NextPayment.String()),
			slog.Bool("history_created", created),
		)

		if s.notifier != nil {
			s.notifier.SubscriptionChanged(ctx, models.ChangeEvent{
				Table:   "subscriptions",
				Event:   models.EventUpdate,
				ID:      tr.From.ID,
				UserUID: tr.From.UserUID,
			})
		}
	}
	return res
}
