package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/clock"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateSubscription(ctx context.Context, sub models.Subscription, initial *models.PaymentHistoryEntry) (*models.Subscription, error) {
	args := m.Called(ctx, sub, initial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) GetSubscription(ctx context.Context, id, userUID string) (*models.Subscription, error) {
	args := m.Called(ctx, id, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) UpdateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) DeleteSubscription(ctx context.Context, id, userUID string) error {
	return m.Called(ctx, id, userUID).Error(0)
}

func (m *RepoMock) ListSubscriptions(ctx context.Context, userUID string) ([]*models.Subscription, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *CacheMock) PublishChange(ctx context.Context, ev models.ChangeEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tokyo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	return loc
}

func date(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

// 2025-06-08 21:00 в Токио
func newService(t *testing.T, repo *RepoMock, c *CacheMock) *Service {
	now := time.Date(2025, time.June, 8, 21, 0, 0, 0, tokyo(t))
	if c == nil {
		return New(repo, nil, clock.NewFixed(now), tokyo(t), newNoopLogger())
	}
	return New(repo, c, clock.NewFixed(now), tokyo(t), newNoopLogger())
}

func TestCreate_PaidRecordsPaymentToday(t *testing.T) {
	repo := new(RepoMock)
	c := new(CacheMock)
	svc := newService(t, repo, c)

	req := models.SubscriptionRequest{
		Name: " Netflix ", Price: 1490, Category: "エンタメ", CardName: "楽天カード",
		NextPayment: "2025-07-08",
	}

	repo.On("CreateSubscription", mock.Anything,
		mock.MatchedBy(func(s models.Subscription) bool {
			return s.Name == "Netflix" && s.UserUID == "u1" && s.ID != "" &&
				s.CardName != nil && *s.CardName == "楽天カード" &&
				s.NextPayment.String() == "2025-07-08" && !s.IsTrialPeriod
		}),
		mock.MatchedBy(func(p *models.PaymentHistoryEntry) bool {
			return p != nil && p.PaymentDate.String() == "2025-06-08" && p.Amount == 1490 && p.Category == "エンタメ"
		}),
	).Return(&models.Subscription{ID: "s1", UserUID: "u1", Name: "Netflix"}, nil)
	c.On("Set", mock.Anything, "subscription:s1", mock.Anything, time.Duration(0)).Return(nil)
	c.On("PublishChange", mock.Anything, models.ChangeEvent{
		Table: "subscriptions", Event: models.EventInsert, ID: "s1", UserUID: "u1",
	}).Return(nil)

	sub, err := svc.Create(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.Equal(t, "s1", sub.ID)
	repo.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestCreate_TrialHasNoInitialPayment(t *testing.T) {
	repo := new(RepoMock)
	svc := newService(t, repo, nil)

	req := models.SubscriptionRequest{
		Name: "Duolingo", Price: 6248, Category: "英語",
		IsTrialPeriod: true, TrialEndDate: "2025-06-07",
	}
	repo.On("CreateSubscription", mock.Anything,
		mock.MatchedBy(func(s models.Subscription) bool {
			return s.IsTrialPeriod && s.TrialEndDate != nil &&
				s.TrialEndDate.String() == "2025-06-07" && s.NextPayment.String() == "2025-06-07"
		}),
		(*models.PaymentHistoryEntry)(nil),
	).Return(&models.Subscription{ID: "s2"}, nil)

	_, err := svc.Create(context.Background(), "u1", req)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCreate_Invalid(t *testing.T) {
	tests := []struct {
		name string
		req  models.SubscriptionRequest
	}{
		{name: "триал без даты окончания", req: models.SubscriptionRequest{Name: "A", Category: "AI", IsTrialPeriod: true}},
		{name: "без следующего платежа", req: models.SubscriptionRequest{Name: "A", Category: "AI"}},
		{name: "кривая дата", req: models.SubscriptionRequest{Name: "A", Category: "AI", NextPayment: "08.06.2025"}},
		{name: "пустое имя", req: models.SubscriptionRequest{Name: "  ", Category: "AI", NextPayment: "2025-06-08"}},
		{name: "отрицательная цена", req: models.SubscriptionRequest{Name: "A", Price: -1, Category: "AI", NextPayment: "2025-06-08"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			_, err := newService(t, repo, nil).Create(context.Background(), "u1", tt.req)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
			repo.AssertNotCalled(t, "CreateSubscription", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRead_FromCache(t *testing.T) {
	repo := new(RepoMock)
	c := new(CacheMock)
	svc := newService(t, repo, c)

	c.On("Get", mock.Anything, "subscription:s1", mock.Anything).Run(func(args mock.Arguments) {
		*(args.Get(2).(*models.Subscription)) = models.Subscription{ID: "s1", UserUID: "u1", Name: "cached"}
	}).Return(true, nil)

	sub, err := svc.Read(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "cached", sub.Name)
	repo.AssertNotCalled(t, "GetSubscription", mock.Anything, mock.Anything, mock.Anything)

	_, err = svc.Read(context.Background(), "intruder", "s1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRead_MissFillsCache(t *testing.T) {
	repo := new(RepoMock)
	c := new(CacheMock)
	svc := newService(t, repo, c)

	c.On("Get", mock.Anything, "subscription:s1", mock.Anything).Return(false, nil)
	repo.On("GetSubscription", mock.Anything, "s1", "u1").Return(&models.Subscription{ID: "s1", UserUID: "u1"}, nil)
	c.On("Set", mock.Anything, "subscription:s1", mock.Anything, time.Duration(0)).Return(errors.New("redis down"))

	sub, err := svc.Read(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", sub.ID)
	c.AssertExpectations(t)
}

func TestRead_NotFound(t *testing.T) {
	repo := new(RepoMock)
	svc := newService(t, repo, nil)
	repo.On("GetSubscription", mock.Anything, "s1", "u1").Return(nil, models.ErrNotFound)

	_, err := svc.Read(context.Background(), "u1", "s1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateAndRemove_InvalidateAndPublish(t *testing.T) {
	repo := new(RepoMock)
	c := new(CacheMock)
	svc := newService(t, repo, c)

	repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
		return s.ID == "s1" && s.UserUID == "u1" && s.Price == 1980
	})).Return(&models.Subscription{ID: "s1", Price: 1980}, nil)
	repo.On("DeleteSubscription", mock.Anything, "s1", "u1").Return(nil)
	c.On("Invalidate", mock.Anything, []string{"subscription:s1"}).Return(nil)
	c.On("PublishChange", mock.Anything, mock.MatchedBy(func(ev models.ChangeEvent) bool {
		return ev.ID == "s1" && ev.UserUID == "u1"
	})).Return(nil)

	_, err := svc.Update(context.Background(), "u1", "s1", models.SubscriptionRequest{
		Name: "Netflix", Price: 1980, Category: "エンタメ", NextPayment: "2025-07-08",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Remove(context.Background(), "u1", "s1"))

	c.AssertNumberOfCalls(t, "Invalidate", 2)
	c.AssertNumberOfCalls(t, "PublishChange", 2)
}

func TestRemove_NotFoundDoesNotPublish(t *testing.T) {
	repo := new(RepoMock)
	c := new(CacheMock)
	svc := newService(t, repo, c)
	repo.On("DeleteSubscription", mock.Anything, "s1", "u1").Return(models.ErrNotFound)

	err := svc.Remove(context.Background(), "u1", "s1")
	assert.ErrorIs(t, err, models.ErrNotFound)
	c.AssertNotCalled(t, "PublishChange", mock.Anything, mock.Anything)
}

func fixtures(t *testing.T) []*models.Subscription {
	trialEnd := date(t, "2025-06-10")
	return []*models.Subscription{
		{ID: "past", Name: "past", Price: 100, NextPayment: date(t, "2025-06-01")},
		{ID: "tomorrow", Name: "tomorrow", Price: 1490, NextPayment: date(t, "2025-06-09")},
		{ID: "in3", Name: "in3", Price: 980, NextPayment: date(t, "2025-06-11")},
		{ID: "today", Name: "today", Price: 500, NextPayment: date(t, "2025-06-08")},
		{ID: "far", Name: "far", Price: 2000, NextPayment: date(t, "2025-07-20")},
		{ID: "later", Name: "later", Price: 300, NextPayment: date(t, "2025-06-25")},
		{ID: "later2", Name: "later2", Price: 300, NextPayment: date(t, "2025-06-25")},
		{ID: "trial", Name: "trial", Price: 6248, IsTrialPeriod: true, TrialEndDate: &trialEnd, NextPayment: trialEnd},
	}
}

func TestUpcoming(t *testing.T) {
	repo := new(RepoMock)
	svc := newService(t, repo, nil)
	repo.On("ListSubscriptions", mock.Anything, "u1").Return(fixtures(t), nil)

	got, err := svc.Upcoming(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, got, DefaultUpcomingLimit)

	ids := make([]string, 0, len(got))
	for _, u := range got {
		ids = append(ids, u.SubscriptionID)
	}
	// платеж сегодня в 21:00 дает 0 дней и остается в списке
	assert.Equal(t, []string{"today", "tomorrow", "in3", "later", "later2"}, ids)
	assert.Equal(t, 0, got[0].DaysUntil)
	assert.Equal(t, 1, got[1].DaysUntil)
	assert.Equal(t, 3, got[2].DaysUntil)
}

func TestSummary(t *testing.T) {
	repo := new(RepoMock)
	svc := newService(t, repo, nil)
	repo.On("ListSubscriptions", mock.Anything, "u1").Return(fixtures(t), nil)

	sum, err := svc.Summary(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 100+1490+980+500+2000+300+300, sum.TotalMonthlySpend)
	assert.Equal(t, sum.TotalMonthlySpend*12, sum.TotalAnnualSpend)
	assert.Equal(t, 6248, sum.TrialValue)
	assert.Equal(t, 7, sum.ActiveCount)
	assert.Equal(t, 1, sum.TrialCount)
	assert.Equal(t, 3, sum.AlertCount)
}

func TestCalendar(t *testing.T) {
	repo := new(RepoMock)
	svc := newService(t, repo, nil)
	repo.On("ListSubscriptions", mock.Anything, "u1").Return(fixtures(t), nil)

	days, err := svc.Calendar(context.Background(), "u1", 0, 0)
	require.NoError(t, err)

	require.Len(t, days, 5)
	assert.Equal(t, "2025-06-01", days[0].Date.String())
	last := days[len(days)-1]
	assert.Equal(t, "2025-06-25", last.Date.String())
	assert.Equal(t, 600, last.Total)
	assert.Len(t, last.Payments, 2)

	july, err := svc.Calendar(context.Background(), "u1", 2025, time.July)
	require.NoError(t, err)
	require.Len(t, july, 1)
	assert.Equal(t, "far", july[0].Payments[0].SubscriptionID)
}

func TestList_EmptyIsNotNil(t *testing.T) {
	repo := new(RepoMock)
	svc := newService(t, repo, nil)
	repo.On("ListSubscriptions", mock.Anything, "u1").Return(nil, nil)

	subs, err := svc.List(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, subs)
	assert.Empty(t, subs)
}
