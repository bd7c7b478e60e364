package repository

import (
	"context"
	"database/sql"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertPayment добавляет платеж, если за эту дату его еще нет.
func insertPayment(ctx context.Context, db execer, e models.PaymentHistoryEntry) (bool, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO payment_history (id, subscription_id, user_uid, amount, payment_date, category)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT ON CONSTRAINT payment_history_subscription_date_key DO NOTHING`,
		e.ID, e.SubscriptionID, e.UserUID, e.Amount, e.PaymentDate.Time, e.Category)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// InsertPayment записывает платеж идемпотентно по (subscription_id, payment_date).
// Возвращает true, если строка была создана.
func (s *Storage) InsertPayment(ctx context.Context, entry models.PaymentHistoryEntry) (bool, error) {
	const op = "storage.InsertPayment"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}
	created, err := insertPayment(ctx, s.DB, entry)
	if err != nil {
		return false, mapErr(op, err)
	}
	return created, nil
}

// ListPayments возвращает историю платежей пользователя, новые первыми.
func (s *Storage) ListPayments(ctx context.Context, userUID string, limit, offset int) ([]*models.PaymentRecord, error) {
	const op = "storage.ListPayments"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT ph.id, ph.subscription_id, ph.user_uid, ph.amount, ph.payment_date,
		        ph.category, ph.created_at, s.name
		 FROM payment_history ph
		 JOIN subscriptions s ON s.id = ph.subscription_id
		 WHERE ph.user_uid = $1
		 ORDER BY ph.payment_date DESC, ph.created_at DESC
		 LIMIT $2 OFFSET $3`, userUID, limit, offset)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.PaymentRecord
	for rows.Next() {
		var (
			r    models.PaymentRecord
			date sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.SubscriptionID, &r.UserUID, &r.Amount, &date,
			&r.Category, &r.CreatedAt, &r.SubscriptionName); err != nil {
			return nil, mapErr(op, err)
		}
		r.PaymentDate = models.NewDate(date.Time)
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(op, err)
	}
	return result, nil
}

// MonthlySpending суммирует платежи пользователя по месяцам и категориям,
// последний месяц первым.
func (s *Storage) MonthlySpending(ctx context.Context, userUID string) ([]models.MonthlySpending, error) {
	const op = "storage.MonthlySpending"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT to_char(payment_date, 'YYYY-MM') AS month, category, SUM(amount)::BIGINT
		 FROM payment_history
		 WHERE user_uid = $1
		 GROUP BY month, category
		 ORDER BY month DESC, category`, userUID)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []models.MonthlySpending
	for rows.Next() {
		var (
			month, category string
			sum             int64
		)
		if err := rows.Scan(&month, &category, &sum); err != nil {
			return nil, mapErr(op, err)
		}
		if n := len(result); n == 0 || result[n-1].Month != month {
			result = append(result, models.MonthlySpending{Month: month, ByCategory: map[string]int{}})
		}
		last := &result[len(result)-1]
		last.ByCategory[category] += int(sum)
		last.Total += int(sum)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(op, err)
	}
	return result, nil
}
