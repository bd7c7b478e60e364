package models

import "time"

// NotificationType вид напоминания.
type NotificationType string

// Виды напоминаний.
const (
	NotificationTrialEnding     NotificationType = "trial_ending"
	NotificationPaymentReminder NotificationType = "payment_reminder"
)

// NotificationStatus состояние строки истории уведомлений.
type NotificationStatus string

// Состояния уведомления.
const (
	StatusPending NotificationStatus = "pending"
	StatusSent    NotificationStatus = "sent"
	StatusFailed  NotificationStatus = "failed"
)

// Значения настроек по умолчанию.
var (
	DefaultTrialNotificationDays   = []int{2, 1}
	DefaultPaymentNotificationDays = []int{3, 1}
)

// Настройки по умолчанию, которые не являются окнами.
const (
	DefaultNotificationTime = "21:00"
	DefaultTimezone         = "Asia/Tokyo"
)

// NotificationSettings настройки напоминаний пользователя.
// Пустой набор дней отключает соответствующий вид напоминаний.
type NotificationSettings struct {
	UserUID                   string `json:"user_uid"`
	EmailNotificationsEnabled bool   `json:"email_notifications_enabled"`
	TrialNotificationDays     []int  `json:"trial_notification_days"`
	PaymentNotificationDays   []int  `json:"payment_notification_days"`
	// NotificationTime и Timezone хранятся как пожелание пользователя.
	// Проход планировщика их не читает: окна считаются по часам и поясу
	// из конфига планировщика.
	NotificationTime string    `json:"notification_time"`
	Timezone         string    `json:"timezone"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DefaultNotificationSettings возвращает настройки для пользователя без записи.
func DefaultNotificationSettings(userUID string) NotificationSettings {
	return NotificationSettings{
		UserUID:                   userUID,
		EmailNotificationsEnabled: true,
		TrialNotificationDays:     append([]int(nil), DefaultTrialNotificationDays...),
		PaymentNotificationDays:   append([]int(nil), DefaultPaymentNotificationDays...),
		NotificationTime:          DefaultNotificationTime,
		Timezone:                  DefaultTimezone,
	}
}

// SettingsRequest полная замена настроек напоминаний.
type SettingsRequest struct {
	EmailNotificationsEnabled bool   `json:"email_notifications_enabled"`
	TrialNotificationDays     []int  `json:"trial_notification_days" validate:"max=7,dive,min=1,max=30"`
	PaymentNotificationDays   []int  `json:"payment_notification_days" validate:"max=7,dive,min=1,max=30"`
	NotificationTime          string `json:"notification_time" validate:"omitempty"`
	Timezone                  string `json:"timezone" validate:"omitempty"`
}

// NotificationHistory строка журнала отправленных напоминаний.
// Уникальна по (SubscriptionID, Type, DaysBefore, ScheduledFor).
type NotificationHistory struct {
	ID             string             `json:"id"`
	RunID          string             `json:"run_id"`
	UserUID        string             `json:"user_uid"`
	SubscriptionID string             `json:"subscription_id"`
	Type           NotificationType   `json:"notification_type"`
	DaysBefore     int                `json:"days_before"`
	ScheduledFor   Date               `json:"scheduled_for"`
	EmailAddress   string             `json:"email_address"`
	Subject        string             `json:"subject"`
	Status         NotificationStatus `json:"status"`
	ErrorMessage   *string            `json:"error_message"`
	SentAt         *time.Time         `json:"sent_at"`
	CreatedAt      time.Time          `json:"created_at"`
}

// ReminderCandidate подписка вместе с адресатом и его настройками.
type ReminderCandidate struct {
	Subscription Subscription
	Email        string
	Username     string
	Settings     NotificationSettings
}

// Email письмо для отправки.
type Email struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// ReminderJob сообщение в очереди напоминаний.
type ReminderJob struct {
	NotificationID string           `json:"notification_id"`
	RunID          string           `json:"run_id"`
	UserUID        string           `json:"user_uid"`
	SubscriptionID string           `json:"subscription_id"`
	Type           NotificationType `json:"notification_type"`
	DaysBefore     int              `json:"days_before"`
	Email          Email            `json:"email"`
}

// Итог отправки в RunDetail.
const (
	DetailSent    = "sent"
	DetailQueued  = "queued"
	DetailFailed  = "failed"
	DetailSkipped = "skipped"
)

// RunDetail результат по одному напоминанию.
type RunDetail struct {
	SubscriptionID string           `json:"subscription_id"`
	UserUID        string           `json:"user_uid"`
	Email          string           `json:"email"`
	Type           NotificationType `json:"notification_type"`
	DaysBefore     int              `json:"days_before"`
	Status         string           `json:"status"`
	Error          string           `json:"error,omitempty"`
}

// RunResult итог прохода планировщика напоминаний.
type RunResult struct {
	RunID                string      `json:"run_id"`
	ProcessedDate        Date        `json:"processed_date"`
	NotificationsSent    int         `json:"notifications_sent"`
	NotificationsFailed  int         `json:"notifications_failed"`
	NotificationsSkipped int         `json:"notifications_skipped"`
	Details              []RunDetail `json:"details"`
}
