package models

import "time"

// PaymentHistoryEntry факт оплаты подписки в конкретную дату.
// Пара (SubscriptionID, PaymentDate) уникальна.
type PaymentHistoryEntry struct {
	ID             string    `json:"id"`
	SubscriptionID string    `json:"subscription_id"`
	UserUID        string    `json:"user_uid"`
	Amount         int       `json:"amount"`
	PaymentDate    Date      `json:"payment_date"`
	Category       string    `json:"category"`
	CreatedAt      time.Time `json:"created_at"`
}

// PaymentRecord запись истории вместе с названием подписки.
type PaymentRecord struct {
	PaymentHistoryEntry
	SubscriptionName string `json:"subscription_name"`
}

// PaymentRequest ручное добавление платежа.
type PaymentRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"required,uuid"`
	Amount         *int   `json:"amount" validate:"omitempty,gte=0"`
	PaymentDate    string `json:"payment_date" validate:"required"`
}

// MonthlySpending сумма платежей за месяц с разбивкой по категориям.
type MonthlySpending struct {
	Month      string         `json:"month"`
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"by_category"`
}
