// Package subscription содержит бизнес-логику работы с подписками:
// CRUD в рамках владельца, кэширование и события изменений.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/civil"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/clock"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/month"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/cache"
)

// DefaultUpcomingLimit сколько ближайших платежей показывать.
const DefaultUpcomingLimit = 5

// alertDays платеж ближе этого числа дней считается срочным.
const alertDays = 3

// Repository методы хранилища подписок.
type Repository interface {
	CreateSubscription(ctx context.Context, sub models.Subscription, initial *models.PaymentHistoryEntry) (*models.Subscription, error)
	GetSubscription(ctx context.Context, id, userUID string) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error)
	DeleteSubscription(ctx context.Context, id, userUID string) error
	ListSubscriptions(ctx context.Context, userUID string) ([]*models.Subscription, error)
}

// Cache кэш подписок и канал событий.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
	PublishChange(ctx context.Context, ev models.ChangeEvent) error
}

// Service реализует операции над подписками.
type Service struct {
	repo  Repository
	cache Cache
	clock clock.Clock
	loc   *time.Location
	log   *slog.Logger
}

// New создает сервис. cache может быть nil.
func New(repo Repository, c Cache, clk clock.Clock, loc *time.Location, log *slog.Logger) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, cache: c, clock: clk, loc: loc, log: log}
}

func (s *Service) today() models.Date {
	return models.Date{Time: civil.Today(s.clock.Now(), s.loc)}
}

// build проверяет запрос и собирает из него подписку.
func build(req models.SubscriptionRequest) (models.Subscription, error) {
	sub := models.Subscription{
		Name:          strings.TrimSpace(req.Name),
		Price:         req.Price,
		Category:      strings.TrimSpace(req.Category),
		IsTrialPeriod: req.IsTrialPeriod,
	}
	if sub.Name == "" || sub.Category == "" {
		return sub, fmt.Errorf("%w: name and category are required", models.ErrInvalidInput)
	}
	if sub.Price < 0 {
		return sub, fmt.Errorf("%w: price must not be negative", models.ErrInvalidInput)
	}
	if card := strings.TrimSpace(req.CardName); card != "" {
		sub.CardName = &card
	}

	if req.IsTrialPeriod {
		if strings.TrimSpace(req.TrialEndDate) == "" {
			return sub, fmt.Errorf("%w: trial_end_date is required for a trial", models.ErrInvalidInput)
		}
		end, err := models.ParseDate(strings.TrimSpace(req.TrialEndDate))
		if err != nil {
			return sub, err
		}
		sub.TrialEndDate = &end
		sub.NextPayment = end
	}

	if next := strings.TrimSpace(req.NextPayment); next != "" {
		d, err := models.ParseDate(next)
		if err != nil {
			return sub, err
		}
		sub.NextPayment = d
	} else if !req.IsTrialPeriod {
		return sub, fmt.Errorf("%w: next_payment is required", models.ErrInvalidInput)
	}
	return sub, nil
}

// Create добавляет подписку. Для платной подписки сразу записывается
// платеж сегодняшним днем.
func (s *Service) Create(ctx context.Context, userUID string, req models.SubscriptionRequest) (*models.Subscription, error) {
	const op = "subscription.Create"
	sub, err := build(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sub.ID = uuid.NewString()
	sub.UserUID = userUID

	var initial *models.PaymentHistoryEntry
	if !sub.IsTrialPeriod {
		initial = &models.PaymentHistoryEntry{
			ID:             uuid.NewString(),
			SubscriptionID: sub.ID,
			UserUID:        userUID,
			Amount:         sub.Price,
			PaymentDate:    s.today(),
			Category:       sub.Category,
		}
	}

	created, err := s.repo.CreateSubscription(ctx, sub, initial)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("created new subscription", sl.Sub(created.ID), sl.User(userUID))

	s.store(ctx, created)
	s.publish(ctx, models.EventInsert, created.ID, userUID)
	return created, nil
}

// Read возвращает подписку владельца, сначала из кэша.
func (s *Service) Read(ctx context.Context, userUID, id string) (*models.Subscription, error) {
	const op = "subscription.Read"
	if s.cache != nil {
		var cached models.Subscription
		found, err := s.cache.Get(ctx, cache.SubscriptionKey(id), &cached)
		if err != nil {
			s.log.Warn("failed to read from cache", slog.String("key", cache.SubscriptionKey(id)), sl.Err(err))
		}
		if found {
			if cached.UserUID != userUID {
				return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
			}
			return &cached, nil
		}
	}

	sub, err := s.repo.GetSubscription(ctx, id, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.store(ctx, sub)
	return sub, nil
}

// Update полностью заменяет изменяемые поля подписки.
func (s *Service) Update(ctx context.Context, userUID, id string, req models.SubscriptionRequest) (*models.Subscription, error) {
	const op = "subscription.Update"
	sub, err := build(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sub.ID = id
	sub.UserUID = userUID

	updated, err := s.repo.UpdateSubscription(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, id)
	s.publish(ctx, models.EventUpdate, id, userUID)
	return updated, nil
}

// Remove удаляет подписку вместе с ее историей платежей.
func (s *Service) Remove(ctx context.Context, userUID, id string) error {
	const op = "subscription.Remove"
	if err := s.repo.DeleteSubscription(ctx, id, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, id)
	s.publish(ctx, models.EventDelete, id, userUID)
	return nil
}

// List возвращает подписки пользователя, новые первыми.
func (s *Service) List(ctx context.Context, userUID string) ([]*models.Subscription, error) {
	const op = "subscription.List"
	subs, err := s.repo.ListSubscriptions(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if subs == nil {
		subs = []*models.Subscription{}
	}
	return subs, nil
}

func (s *Service) upcoming(subs []*models.Subscription, now time.Time) []models.UpcomingPayment {
	out := make([]models.UpcomingPayment, 0, len(subs))
	for _, sub := range subs {
		if sub.IsTrialPeriod {
			continue
		}
		days := civil.DaysUntil(sub.NextPayment.Time, now, s.loc)
		if days < 0 {
			continue
		}
		out = append(out, toUpcoming(sub, days))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysUntil < out[j].DaysUntil
	})
	return out
}

func toUpcoming(sub *models.Subscription, days int) models.UpcomingPayment {
	return models.UpcomingPayment{
		SubscriptionID: sub.ID,
		Name:           sub.Name,
		Price:          sub.Price,
		Category:       sub.Category,
		CardName:       sub.CardName,
		NextPayment:    sub.NextPayment,
		DaysUntil:      days,
	}
}

// Upcoming возвращает ближайшие платежи платных подписок.
func (s *Service) Upcoming(ctx context.Context, userUID string, limit int) ([]models.UpcomingPayment, error) {
	const op = "subscription.Upcoming"
	subs, err := s.repo.ListSubscriptions(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}
	out := s.upcoming(subs, s.clock.Now())
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Summary считает расходы пользователя.
func (s *Service) Summary(ctx context.Context, userUID string) (*models.Summary, error) {
	const op = "subscription.Summary"
	subs, err := s.repo.ListSubscriptions(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var sum models.Summary
	for _, sub := range subs {
		if sub.IsTrialPeriod {
			sum.TrialCount++
			sum.TrialValue += sub.Price
			continue
		}
		sum.ActiveCount++
		sum.TotalMonthlySpend += sub.Price
	}
	sum.TotalAnnualSpend = sum.TotalMonthlySpend * 12
	for _, u := range s.upcoming(subs, s.clock.Now()) {
		if u.DaysUntil <= alertDays {
			sum.AlertCount++
		}
	}
	return &sum, nil
}

// Calendar группирует по дням платежи, которые приходятся на месяц.
// Нулевой year означает текущий месяц.
func (s *Service) Calendar(ctx context.Context, userUID string, year int, m time.Month) ([]models.CalendarDay, error) {
	const op = "subscription.Calendar"
	if year == 0 {
		today := s.today()
		year, m = today.Year(), today.Month()
	}
	start, end := month.Bounds(year, m)

	subs, err := s.repo.ListSubscriptions(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.clock.Now()
	byDay := map[string]*models.CalendarDay{}
	for _, sub := range subs {
		if sub.IsTrialPeriod {
			continue
		}
		t := sub.NextPayment.Time
		if t.Before(start) || !t.Before(end) {
			continue
		}
		key := sub.NextPayment.String()
		day, ok := byDay[key]
		if !ok {
			day = &models.CalendarDay{Date: sub.NextPayment, Payments: []models.UpcomingPayment{}}
			byDay[key] = day
		}
		day.Total += sub.Price
		day.Payments = append(day.Payments, toUpcoming(sub, civil.DaysUntil(t, now, s.loc)))
	}

	out := make([]models.CalendarDay, 0, len(byDay))
	for _, day := range byDay {
		out = append(out, *day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// SubscriptionChanged сбрасывает кэш и рассылает событие об изменении,
// сделанном в обход сервиса (например пересчетом жизненного цикла).
func (s *Service) SubscriptionChanged(ctx context.Context, ev models.ChangeEvent) {
	s.invalidate(ctx, ev.ID)
	s.publish(ctx, ev.Event, ev.ID, ev.UserUID)
}

func (s *Service) store(ctx context.Context, sub *models.Subscription) {
	if s.cache == nil || sub == nil {
		return
	}
	if err := s.cache.Set(ctx, cache.SubscriptionKey(sub.ID), sub, 0); err != nil {
		s.log.Warn("failed to cache subscription", slog.String("key", cache.SubscriptionKey(sub.ID)), sl.Err(err))
	}
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.SubscriptionKey(id)); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", cache.SubscriptionKey(id)), sl.Err(err))
	}
}

func (s *Service) publish(ctx context.Context, event, id, userUID string) {
	if s.cache == nil {
		return
	}
	err := s.cache.PublishChange(ctx, models.ChangeEvent{
		Table:   "subscriptions",
		Event:   event,
		ID:      id,
		UserUID: userUID,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("failed to publish change", sl.Sub(id), sl.Err(err))
	}
}
