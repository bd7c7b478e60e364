package payment

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

type MockRepo struct{ mock.Mock }

func (m *MockRepo) InsertPayment(ctx context.Context, entry models.PaymentHistoryEntry) (bool, error) {
	args := m.Called(ctx, entry)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepo) ListPayments(ctx context.Context, userUID string, limit, offset int) ([]*models.PaymentRecord, error) {
	args := m.Called(ctx, userUID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PaymentRecord), args.Error(1)
}

func (m *MockRepo) MonthlySpending(ctx context.Context, userUID string) ([]models.MonthlySpending, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MonthlySpending), args.Error(1)
}

func (m *MockRepo) GetSubscription(ctx context.Context, id, userUID string) (*models.Subscription, error) {
	args := m.Called(ctx, id, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustDate(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestRecord(t *testing.T) {
	repo := new(MockRepo)
	svc := New(repo, newNoopLogger())

	entry := models.PaymentHistoryEntry{SubscriptionID: "s1", Amount: 980, PaymentDate: mustDate(t, "2025-06-20")}
	repo.On("InsertPayment", mock.Anything, mock.MatchedBy(func(e models.PaymentHistoryEntry) bool {
		return e.ID != "" && e.SubscriptionID == "s1"
	})).Return(true, nil).Once()
	repo.On("InsertPayment", mock.Anything, mock.Anything).Return(false, nil).Once()

	created, err := svc.Record(context.Background(), entry)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.Record(context.Background(), entry)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestRecord_Invalid(t *testing.T) {
	svc := New(new(MockRepo), newNoopLogger())
	_, err := svc.Record(context.Background(), models.PaymentHistoryEntry{SubscriptionID: "s1"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestAddManual(t *testing.T) {
	repo := new(MockRepo)
	svc := New(repo, newNoopLogger())

	repo.On("GetSubscription", mock.Anything, "s1", "u1").
		Return(&models.Subscription{ID: "s1", UserUID: "u1", Price: 1490, Category: "エンタメ"}, nil)
	repo.On("InsertPayment", mock.Anything, mock.MatchedBy(func(e models.PaymentHistoryEntry) bool {
		return e.Amount == 1490 && e.Category == "エンタメ" && e.UserUID == "u1" && e.PaymentDate.String() == "2025-05-08"
	})).Return(true, nil)

	entry, created, err := svc.AddManual(context.Background(), "u1", models.PaymentRequest{
		SubscriptionID: "s1", PaymentDate: "2025-05-08",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1490, entry.Amount)
}

func TestAddManual_CustomAmountAndErrors(t *testing.T) {
	repo := new(MockRepo)
	svc := New(repo, newNoopLogger())
	amount := 500

	repo.On("GetSubscription", mock.Anything, "s1", "u1").Return(&models.Subscription{ID: "s1", Price: 1490}, nil)
	repo.On("GetSubscription", mock.Anything, "s2", "u1").Return(nil, models.ErrNotFound)
	repo.On("InsertPayment", mock.Anything, mock.MatchedBy(func(e models.PaymentHistoryEntry) bool {
		return e.Amount == 500
	})).Return(true, nil)

	entry, _, err := svc.AddManual(context.Background(), "u1", models.PaymentRequest{
		SubscriptionID: "s1", PaymentDate: "2025-05-08", Amount: &amount,
	})
	require.NoError(t, err)
	assert.Equal(t, 500, entry.Amount)

	_, _, err = svc.AddManual(context.Background(), "u1", models.PaymentRequest{SubscriptionID: "s2", PaymentDate: "2025-05-08"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, _, err = svc.AddManual(context.Background(), "u1", models.PaymentRequest{SubscriptionID: "s1", PaymentDate: "May 8"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestList_Defaults(t *testing.T) {
	repo := new(MockRepo)
	svc := New(repo, newNoopLogger())
	repo.On("ListPayments", mock.Anything, "u1", DefaultListLimit, 0).Return(nil, nil)

	res, err := svc.List(context.Background(), "u1", 0, -5)
	require.NoError(t, err)
	assert.NotNil(t, res)
}

func TestMonthly_Error(t *testing.T) {
	repo := new(MockRepo)
	svc := New(repo, newNoopLogger())
	repo.On("MonthlySpending", mock.Anything, "u1").Return(nil, errors.New("db down"))

	_, err := svc.Monthly(context.Background(), "u1")
	assert.Error(t, err)
}

func TestExportXLSX(t *testing.T) {
	repo := new(MockRepo)
	svc := New(repo, newNoopLogger())

	repo.On("MonthlySpending", mock.Anything, "u1").Return([]models.MonthlySpending{
		{Month: "2025-06", Total: 1500, ByCategory: map[string]int{"エンタメ": 1000, "音楽": 500}},
		{Month: "2025-05", Total: 1000, ByCategory: map[string]int{"エンタメ": 1000}},
	}, nil)
	repo.On("ListPayments", mock.Anything, "u1", exportLimit, 0).Return([]*models.PaymentRecord{
		{
			PaymentHistoryEntry: models.PaymentHistoryEntry{Amount: 500, Category: "音楽", PaymentDate: mustDate(t, "2025-06-15")},
			SubscriptionName:    "Spotify",
		},
	}, nil)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportXLSX(context.Background(), "u1", &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(MonthlySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"月", "合計", "エンタメ", "音楽"}, rows[0])
	assert.Equal(t, []string{"2025-06", "1500", "1000", "500"}, rows[1])
	assert.Equal(t, []string{"2025-05", "1000", "1000", "0"}, rows[2])

	history, err := f.GetRows(HistorySheet)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, []string{"2025-06-15", "Spotify", "音楽", "500"}, history[1])
}
