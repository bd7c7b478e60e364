package repository

import (
	"context"

	"github.com/lib/pq"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// int[] передается и читается в текстовом виде, который разбирает pq.Int64Array.
func toInt64s(in []int) pq.Int64Array {
	out := make(pq.Int64Array, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

func toInts(in pq.Int64Array) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

// GetSettings возвращает настройки напоминаний пользователя.
func (s *Storage) GetSettings(ctx context.Context, userUID string) (*models.NotificationSettings, error) {
	const op = "storage.GetSettings"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var (
		st            models.NotificationSettings
		trial, remind pq.Int64Array
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT user_uid, email_notifications_enabled, trial_notification_days::TEXT,
		        payment_notification_days::TEXT, notification_time, timezone, updated_at
		 FROM notification_settings WHERE user_uid = $1`, userUID,
	).Scan(&st.UserUID, &st.EmailNotificationsEnabled, &trial, &remind,
		&st.NotificationTime, &st.Timezone, &st.UpdatedAt)
	if err != nil {
		return nil, mapErr(op, err)
	}
	st.TrialNotificationDays = toInts(trial)
	st.PaymentNotificationDays = toInts(remind)
	return &st, nil
}

// UpsertSettings создает или полностью заменяет настройки пользователя.
func (s *Storage) UpsertSettings(ctx context.Context, st models.NotificationSettings) (*models.NotificationSettings, error) {
	const op = "storage.UpsertSettings"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO notification_settings (user_uid, email_notifications_enabled,
		     trial_notification_days, payment_notification_days, notification_time, timezone)
		 VALUES ($1, $2, $3::TEXT::INTEGER[], $4::TEXT::INTEGER[], $5, $6)
		 ON CONFLICT (user_uid) DO UPDATE SET
		     email_notifications_enabled = EXCLUDED.email_notifications_enabled,
		     trial_notification_days = EXCLUDED.trial_notification_days,
		     payment_notification_days = EXCLUDED.payment_notification_days,
		     notification_time = EXCLUDED.notification_time,
		     timezone = EXCLUDED.timezone,
		     updated_at = now()`,
		st.UserUID, st.EmailNotificationsEnabled,
		toInt64s(st.TrialNotificationDays), toInt64s(st.PaymentNotificationDays),
		st.NotificationTime, st.Timezone)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return s.GetSettings(ctx, st.UserUID)
}
