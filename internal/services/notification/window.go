// Package notification выбирает подписки, по которым пора напомнить
// владельцу, и отправляет письма не чаще одного раза на окно в день.
package notification

import (
	"slices"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/civil"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Reminder совпавшее окно напоминания.
type Reminder struct {
	Type       models.NotificationType
	DaysBefore int
	// Date дата окончания триала или платежа.
	Date models.Date
}

// Match возвращает напоминания для кандидата в момент now.
// Окно считается как ceil((полночь даты - now) / 24h) по настенным часам loc.
func Match(c models.ReminderCandidate, now time.Time, loc *time.Location) []Reminder {
	if !c.Settings.EmailNotificationsEnabled || c.Email == "" {
		return nil
	}
	sub := c.Subscription

	if sub.IsTrialPeriod {
		if sub.TrialEndDate == nil {
			return nil
		}
		days := civil.DaysUntil(sub.TrialEndDate.Time, now, loc)
		if days > 0 && slices.Contains(c.Settings.TrialNotificationDays, days) {
			return []Reminder{{Type: models.NotificationTrialEnding, DaysBefore: days, Date: *sub.TrialEndDate}}
		}
		return nil
	}

	if sub.NextPayment.IsZero() {
		return nil
	}
	days := civil.DaysUntil(sub.NextPayment.Time, now, loc)
	if days > 0 && slices.Contains(c.Settings.PaymentNotificationDays, days) {
		return []Reminder{{Type: models.NotificationPaymentReminder, DaysBefore: days, Date: sub.NextPayment}}
	}
	return nil
}
