// Package lifecycle пересчитывает состояние подписок на текущую дату:
// завершает истекшие триалы и переносит дату следующего платежа.
//
// Evaluate чистая функция и ничего не пишет. Service применяет ее результат
// к хранилищу, Runner запускает Service по расписанию.
package lifecycle

import (
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/civil"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Rule правило, по которому изменилась подписка.
type Rule string

// Правила пересчета.
const (
	RuleTrialExpiry Rule = "trial_expiry"
	RuleRollover    Rule = "rollover"
)

// Options параметры пересчета.
type Options struct {
	// CatchUp переносит next_payment вперед, пока дата не станет позже сегодняшней.
	// По умолчанию за один проход дата сдвигается на один месяц.
	CatchUp bool
}

// Transition команда на изменение одной подписки.
// Payment всегда датирован сегодняшним днем и не имеет ID.
type Transition struct {
	Rule    Rule                       `json:"rule"`
	From    models.Subscription        `json:"from"`
	To      models.Subscription        `json:"to"`
	Payment models.PaymentHistoryEntry `json:"payment"`
}

// Evaluate вычисляет переходы для подписок на дату now в поясе loc.
// К каждой подписке применяется не больше одного правила.
func Evaluate(now time.Time, loc *time.Location, subs []models.Subscription, opts Options) []Transition {
	today := models.Date{Time: civil.Today(now, loc)}

	var out []Transition
	for _, sub := range subs {
		if tr, ok := evaluateOne(today, sub, opts); ok {
			out = append(out, tr)
		}
	}
	return out
}

func evaluateOne(today models.Date, sub models.Subscription, opts Options) (Transition, bool) {
	next := sub
	var rule Rule

	switch {
	case sub.IsTrialPeriod:
		if sub.TrialEndDate == nil || !sub.TrialEndDate.Before(today) {
			return Transition{}, false
		}
		rule = RuleTrialExpiry
		next.IsTrialPeriod = false
		next.TrialEndDate = nil
		next.NextPayment = sub.TrialEndDate.AddMonths(1)
	case !sub.NextPayment.After(today):
		rule = RuleRollover
		next.NextPayment = sub.NextPayment.AddMonths(1)
		for opts.CatchUp && !next.NextPayment.After(today) {
			next.NextPayment = next.NextPayment.AddMonths(1)
		}
	default:
		return Transition{}, false
	}

	return Transition{
		Rule: rule,
		From: sub,
		To:   next,
		Payment: models.PaymentHistoryEntry{
			SubscriptionID: sub.ID,
			UserUID:        sub.UserUID,
			Amount:         sub.Price,
			PaymentDate:    today,
			Category:       sub.Category,
		},
	}, true
}
