// Package models содержит доменные структуры трекера подписок,
// а также вспомогательные типы для приёма данных из JSON-запросов.
package models

import "time"

// Categories список категорий, которые предлагает клиент.
var Categories = []string{"AI", "音楽", "趣味", "ビジネス", "エンタメ", "英語", "その他"}

// Subscription представляет регулярно оплачиваемую подписку пользователя.
// Пока IsTrialPeriod истинно, TrialEndDate обязательна, а NextPayment не
// участвует в решениях о списании.
type Subscription struct {
	ID            string    `json:"id"`
	UserUID       string    `json:"user_uid"`
	Name          string    `json:"name"`
	Price         int       `json:"price"`
	Category      string    `json:"category"`
	CardName      *string   `json:"card_name"`
	IsTrialPeriod bool      `json:"is_trial_period"`
	TrialEndDate  *Date     `json:"trial_end_date"`
	NextPayment   Date      `json:"next_payment"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SubscriptionRequest используется для приёма данных из JSON-запроса.
// Даты приходят строками в формате YYYY-MM-DD.
type SubscriptionRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Price         int    `json:"price" validate:"gte=0"`
	Category      string `json:"category" validate:"required,max=50"`
	CardName      string `json:"card_name" validate:"omitempty,max=50"`
	IsTrialPeriod bool   `json:"is_trial_period"`
	TrialEndDate  string `json:"trial_end_date" validate:"omitempty"`
	NextPayment   string `json:"next_payment" validate:"omitempty"`
}

// ChangeEvent уведомление об изменении строки, которое получают клиенты.
type ChangeEvent struct {
	Table   string `json:"table"`
	Event   string `json:"event"`
	ID      string `json:"id"`
	UserUID string `json:"user_uid"`
}

// Типы изменений в ChangeEvent.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// UpcomingPayment ближайший платеж по подписке.
type UpcomingPayment struct {
	SubscriptionID string  `json:"subscription_id"`
	Name           string  `json:"name"`
	Price          int     `json:"price"`
	Category       string  `json:"category"`
	CardName       *string `json:"card_name"`
	NextPayment    Date    `json:"next_payment"`
	DaysUntil      int     `json:"days_until"`
}

// Summary сводка расходов пользователя.
type Summary struct {
	TotalMonthlySpend int `json:"total_monthly_spend"`
	TotalAnnualSpend  int `json:"total_annual_spend"`
	TrialValue        int `json:"trial_value"`
	ActiveCount       int `json:"active_count"`
	TrialCount        int `json:"trial_count"`
	// AlertCount платежи в ближайшие три дня.
	AlertCount int `json:"alert_count"`
}

// CalendarDay платежи, приходящиеся на один день месяца.
type CalendarDay struct {
	Date     Date              `json:"date"`
	Total    int               `json:"total"`
	Payments []UpcomingPayment `json:"payments"`
}
