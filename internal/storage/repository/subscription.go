package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

const subscriptionColumns = `id, user_uid, name, price, category, card_name,
	is_trial_period, trial_end_date, next_payment, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var (
		sub         models.Subscription
		cardName    sql.NullString
		trialEnd    sql.NullTime
		nextPayment sql.NullTime
	)
	if err := row.Scan(&sub.ID, &sub.UserUID, &sub.Name, &sub.Price, &sub.Category, &cardName,
		&sub.IsTrialPeriod, &trialEnd, &nextPayment, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	sub.CardName = toStringPtr(cardName)
	sub.TrialEndDate = toDatePtr(trialEnd)
	if nextPayment.Valid {
		sub.NextPayment = models.NewDate(nextPayment.Time)
	}
	return &sub, nil
}

func (s *Storage) querySubscriptions(ctx context.Context, op, query string, args ...any) ([]*models.Subscription, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, mapErr(op, err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(op, err)
	}
	return result, nil
}

// CreateSubscription сохраняет подписку. Если initial не nil, в той же
// транзакции записывается первый платеж.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription, initial *models.PaymentHistoryEntry) (*models.Subscription, error) {
	const op = "storage.CreateSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var created *models.Subscription
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`INSERT INTO subscriptions (id, user_uid, name, price, category, card_name,
			     is_trial_period, trial_end_date, next_payment)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING `+subscriptionColumns,
			sub.ID, sub.UserUID, sub.Name, sub.Price, sub.Category, nullString(sub.CardName),
			sub.IsTrialPeriod, nullDate(sub.TrialEndDate), sub.NextPayment.Time)
		var err error
		if created, err = scanSubscription(row); err != nil {
			return err
		}
		if initial == nil {
			return nil
		}
		_, err = insertPayment(ctx, tx, *initial)
		return err
	})
	if err != nil {
		return nil, mapErr(op, err)
	}
	return created, nil
}

// GetSubscription возвращает подписку пользователя по ID.
func (s *Storage) GetSubscription(ctx context.Context, id, userUID string) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1 AND user_uid = $2`, id, userUID)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return sub, nil
}

// UpdateSubscription перезаписывает изменяемые поля подписки пользователя.
func (s *Storage) UpdateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	const op = "storage.UpdateSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx,
		`UPDATE subscriptions
		 SET name = $1, price = $2, category = $3, card_name = $4,
		     is_trial_period = $5, trial_end_date = $6, next_payment = $7, updated_at = now()
		 WHERE id = $8 AND user_uid = $9
		 RETURNING `+subscriptionColumns,
		sub.Name, sub.Price, sub.Category, nullString(sub.CardName),
		sub.IsTrialPeriod, nullDate(sub.TrialEndDate), sub.NextPayment.Time, sub.ID, sub.UserUID)
	updated, err := scanSubscription(row)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return updated, nil
}

// DeleteSubscription удаляет подписку пользователя вместе с ее историей.
func (s *Storage) DeleteSubscription(ctx context.Context, id, userUID string) error {
	const op = "storage.DeleteSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1 AND user_uid = $2`, id, userUID)
	if err != nil {
		return mapErr(op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return mapErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// ListSubscriptions возвращает подписки пользователя, новые первыми.
func (s *Storage) ListSubscriptions(ctx context.Context, userUID string) ([]*models.Subscription, error) {
	const op = "storage.ListSubscriptions"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	return s.querySubscriptions(ctx, op,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE user_uid = $1
		 ORDER BY created_at DESC, id`, userUID)
}

// ListDueSubscriptions возвращает подписки всех пользователей, для которых
// на дату today наступило окончание триала или платеж.
func (s *Storage) ListDueSubscriptions(ctx context.Context, today models.Date) ([]*models.Subscription, error) {
	const op = "storage.ListDueSubscriptions"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	return s.querySubscriptions(ctx, op,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE (is_trial_period AND trial_end_date < $1)
		    OR (NOT is_trial_period AND next_payment <= $1)
		 ORDER BY user_uid, id`, today.Time)
}

// ApplyTransition атомарно записывает платеж и переводит подписку из
// состояния from в состояние to. Если подписку уже изменили, транзакция
// откатывается и applied=false. created сообщает, была ли добавлена
// новая строка истории. Для оплачиваемой подписки (from не в пробном
// периоде) уже существующий платеж за эту дату означает, что списание
// учтено: подписка не меняется, возвращается models.ErrAlreadyExists.
func (s *Storage) ApplyTransition(ctx context.Context, from, to models.Subscription, entry *models.PaymentHistoryEntry) (applied, created bool, err error) {
	const op = "storage.ApplyTransition"
	if err := checkCtx(ctx, op); err != nil {
		return false, false, err
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if entry != nil {
			if created, err = insertPayment(ctx, tx, *entry); err != nil {
				return err
			}
			if !created && !from.IsTrialPeriod {
				return errAlreadyPaid
			}
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE subscriptions
			 SET is_trial_period = $1, trial_end_date = $2, next_payment = $3, updated_at = now()
			 WHERE id = $4
			   AND is_trial_period = $5
			   AND next_payment = $6
			   AND trial_end_date IS NOT DISTINCT FROM $7::DATE`,
			to.IsTrialPeriod, nullDate(to.TrialEndDate), to.NextPayment.Time, from.ID,
			from.IsTrialPeriod, from.NextPayment.Time, nullDate(from.TrialEndDate))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errStale
		}
		return nil
	})
	if errors.Is(err, errStale) {
		return false, false, nil
	}
	if errors.Is(err, errAlreadyPaid) {
		return false, false, fmt.Errorf("%s: %w: payment for %s", op, models.ErrAlreadyExists, entry.PaymentDate)
	}
	if err != nil {
		return false, false, mapErr(op, err)
	}
	return true, created, nil
}
