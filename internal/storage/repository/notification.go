package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// ListReminderCandidates возвращает все подписки вместе с адресом владельца
// и его настройками. Пользователи без строки настроек получают значения по умолчанию.
func (s *Storage) ListReminderCandidates(ctx context.Context) ([]models.ReminderCandidate, error) {
	const op = "storage.ListReminderCandidates"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT s.id, s.user_uid, s.name, s.price, s.category, s.card_name,
		        s.is_trial_period, s.trial_end_date, s.next_payment, s.created_at, s.updated_at,
		        u.email, u.username,
		        ns.user_uid IS NOT NULL,
		        COALESCE(ns.email_notifications_enabled, TRUE),
		        COALESCE(ns.trial_notification_days, '{}')::TEXT,
		        COALESCE(ns.payment_notification_days, '{}')::TEXT,
		        COALESCE(ns.notification_time, ''),
		        COALESCE(ns.timezone, '')
		 FROM subscriptions s
		 JOIN users u ON u.uid = s.user_uid
		 LEFT JOIN notification_settings ns ON ns.user_uid = s.user_uid
		 ORDER BY s.user_uid, s.id`)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []models.ReminderCandidate
	for rows.Next() {
		var (
			c                      models.ReminderCandidate
			cardName               sql.NullString
			trialEnd, nextPayment  sql.NullTime
			hasSettings            bool
			trialDays, paymentDays pq.Int64Array
			enabled                bool
			notifyTime, tz         string
		)
		sub := &c.Subscription
		if err := rows.Scan(&sub.ID, &sub.UserUID, &sub.Name, &sub.Price, &sub.Category, &cardName,
			&sub.IsTrialPeriod, &trialEnd, &nextPayment, &sub.CreatedAt, &sub.UpdatedAt,
			&c.Email, &c.Username,
			&hasSettings, &enabled, &trialDays, &paymentDays, &notifyTime, &tz,
		); err != nil {
			return nil, mapErr(op, err)
		}
		sub.CardName = toStringPtr(cardName)
		sub.TrialEndDate = toDatePtr(trialEnd)
		sub.NextPayment = models.NewDate(nextPayment.Time)

		if hasSettings {
			c.Settings = models.NotificationSettings{
				UserUID:                   sub.UserUID,
				EmailNotificationsEnabled: enabled,
				TrialNotificationDays:     toInts(trialDays),
				PaymentNotificationDays:   toInts(paymentDays),
				NotificationTime:          notifyTime,
				Timezone:                  tz,
			}
		} else {
			c.Settings = models.DefaultNotificationSettings(sub.UserUID)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(op, err)
	}
	return result, nil
}

// ClaimNotification вставляет строку журнала в статусе pending. Если для
// этого окна строка уже есть, возвращает false и ничего не меняет.
func (s *Storage) ClaimNotification(ctx context.Context, h models.NotificationHistory) (bool, error) {
	const op = "storage.ClaimNotification"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO notification_history (id, run_id, user_uid, subscription_id, notification_type,
		     days_before, scheduled_for, email_address, subject, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT ON CONSTRAINT notification_history_window_key DO NOTHING`,
		h.ID, h.RunID, h.UserUID, h.SubscriptionID, string(h.Type),
		h.DaysBefore, h.ScheduledFor.Time, h.EmailAddress, h.Subject, string(models.StatusPending))
	if err != nil {
		return false, mapErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, mapErr(op, err)
	}
	return n == 1, nil
}

// MarkNotification фиксирует результат отправки.
func (s *Storage) MarkNotification(ctx context.Context, id string, status models.NotificationStatus, errMsg string, at time.Time) error {
	const op = "storage.MarkNotification"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	var sentAt, message any
	if status == models.StatusSent {
		sentAt = at
	}
	if errMsg != "" {
		message = errMsg
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE notification_history
		 SET status = $1, error_message = $2, sent_at = $3
		 WHERE id = $4`, string(status), message, sentAt, id)
	if err != nil {
		return mapErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// ListNotificationHistory возвращает последние напоминания пользователя.
func (s *Storage) ListNotificationHistory(ctx context.Context, userUID string, limit int) ([]models.NotificationHistory, error) {
	const op = "storage.ListNotificationHistory"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, run_id, user_uid, subscription_id, notification_type, days_before,
		        scheduled_for, email_address, subject, status, error_message, sent_at, created_at
		 FROM notification_history
		 WHERE user_uid = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, userUID, limit)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []models.NotificationHistory
	for rows.Next() {
		var (
			h         models.NotificationHistory
			typ, st   string
			scheduled sql.NullTime
			errMsg    sql.NullString
			sentAt    sql.NullTime
		)
		if err := rows.Scan(&h.ID, &h.RunID, &h.UserUID, &h.SubscriptionID, &typ, &h.DaysBefore,
			&scheduled, &h.EmailAddress, &h.Subject, &st, &errMsg, &sentAt, &h.CreatedAt); err != nil {
			return nil, mapErr(op, err)
		}
		h.Type = models.NotificationType(typ)
		h.Status = models.NotificationStatus(st)
		h.ScheduledFor = models.NewDate(scheduled.Time)
		h.ErrorMessage = toStringPtr(errMsg)
		if sentAt.Valid {
			t := sentAt.Time
			h.SentAt = &t
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(op, err)
	}
	return result, nil
}
