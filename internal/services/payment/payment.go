// Package payment ведет историю платежей по подпискам.
package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// DefaultListLimit размер страницы истории по умолчанию.
const DefaultListLimit = 100

// Repository методы хранилища истории платежей.
type Repository interface {
	InsertPayment(ctx context.Context, entry models.PaymentHistoryEntry) (bool, error)
	ListPayments(ctx context.Context, userUID string, limit, offset int) ([]*models.PaymentRecord, error)
	MonthlySpending(ctx context.Context, userUID string) ([]models.MonthlySpending, error)
	GetSubscription(ctx context.Context, id, userUID string) (*models.Subscription, error)
}

// PaymentService записывает и читает историю платежей.
type PaymentService struct {
	repo Repository
	log  *slog.Logger
}

// New создает сервис.
func New(repo Repository, log *slog.Logger) *PaymentService {
	return &PaymentService{
		repo: repo,
		log:  log,
	}
}

// Record добавляет запись, если за эту дату по подписке ее еще нет.
// created=false означает, что запись уже существовала.
func (s *PaymentService) Record(ctx context.Context, entry models.PaymentHistoryEntry) (bool, error) {
	const op = "payment.Record"
	if entry.SubscriptionID == "" || entry.PaymentDate.IsZero() {
		return false, fmt.Errorf("%s: %w: subscription and date are required", op, models.ErrInvalidInput)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	created, err := s.repo.InsertPayment(ctx, entry)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if created {
		s.log.Info("payment recorded", sl.Sub(entry.SubscriptionID), slog.String("date", entry.PaymentDate.String()))
	}
	return created, nil
}

// AddManual записывает платеж по подписке пользователя. Без суммы берется
// текущая цена подписки.
func (s *PaymentService) AddManual(ctx context.Context, userUID string, req models.PaymentRequest) (*models.PaymentHistoryEntry, bool, error) {
	const op = "payment.AddManual"
	date, err := models.ParseDate(req.PaymentDate)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	sub, err := s.repo.GetSubscription(ctx, req.SubscriptionID, userUID)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	amount := sub.Price
	if req.Amount != nil {
		amount = *req.Amount
	}
	entry := models.PaymentHistoryEntry{
		ID:             uuid.NewString(),
		SubscriptionID: sub.ID,
		UserUID:        userUID,
		Amount:         amount,
		PaymentDate:    date,
		Category:       sub.Category,
	}
	created, err := s.Record(ctx, entry)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return &entry, created, nil
}

// List возвращает историю пользователя, новые платежи первыми.
func (s *PaymentService) List(ctx context.Context, userUID string, limit, offset int) ([]*models.PaymentRecord, error) {
	const op = "payment.List"
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	res, err := s.repo.ListPayments(ctx, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if res == nil {
		res = []*models.PaymentRecord{}
	}
	return res, nil
}

// Monthly возвращает суммы по месяцам, последний месяц первым.
func (s *PaymentService) Monthly(ctx context.Context, userUID string) ([]models.MonthlySpending, error) {
	const op = "payment.Monthly"
	res, err := s.repo.MonthlySpending(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if res == nil {
		res = []models.MonthlySpending{}
	}
	return res, nil
}
