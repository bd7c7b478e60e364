// Package civil работает с календарными датами без времени суток.
//
// Календарная дата хранится как time.Time в полночь UTC. "Сегодня" всегда
// вычисляется относительно заданного часового пояса.
package civil

import (
	"math"
	"time"
)

// Layout формат даты в API и хранилище.
const Layout = "2006-01-02"

const day = 24 * time.Hour

// Date собирает календарную дату.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Truncate отбрасывает время суток, сохраняя число в собственном поясе t.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// Today возвращает календарную дату момента now в поясе loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Truncate(now.In(loc))
}

// DaysUntil считает ceil((target - now) / 24h), где target полночь даты,
// а now берется как настенное время в поясе loc.
// Вечером накануне даты результат 1, за двое суток 2.
func DaysUntil(target, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	w := now.In(loc)
	wall := time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), time.UTC)
	diff := Truncate(target).Sub(wall)
	return int(math.Ceil(float64(diff) / float64(day)))
}

// Parse разбирает дату в формате YYYY-MM-DD.
func Parse(s string) (time.Time, error) {
	return time.ParseInLocation(Layout, s, time.UTC)
}

// Format печатает дату в формате YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(Layout)
}
