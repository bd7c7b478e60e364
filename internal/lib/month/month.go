// Package month содержит календарную арифметику по месяцам для дат платежей.
package month

import (
	"time"
)

// KeyLayout формат ключа месяца, например 2025-06.
const KeyLayout = "2006-01"

// Add сдвигает дату на n календарных месяцев, сохраняя число месяца.
// Если такого числа в целевом месяце нет, берется последний день месяца
// (31 января + 1 месяц = 28 или 29 февраля).
func Add(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := DaysIn(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// DaysIn возвращает количество дней в месяце даты t.
func DaysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Key возвращает ключ месяца в формате YYYY-MM.
func Key(t time.Time) string {
	return t.Format(KeyLayout)
}

// Bounds возвращает первый день месяца и первый день следующего месяца.
func Bounds(year int, m time.Month) (time.Time, time.Time) {
	start := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// ParseKey разбирает ключ месяца YYYY-MM.
func ParseKey(s string) (int, time.Month, error) {
	t, err := time.Parse(KeyLayout, s)
	if err != nil {
		return 0, 0, err
	}
	return t.Year(), t.Month(), nil
}
