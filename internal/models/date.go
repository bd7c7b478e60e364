package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/civil"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/month"
)

// Date календарная дата без времени суток. В JSON пишется как YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate отбрасывает время суток у t.
func NewDate(t time.Time) Date {
	return Date{Time: civil.Truncate(t)}
}

// ParseDate разбирает YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := civil.Parse(s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, s)
	}
	return Date{Time: t}, nil
}

// AddMonths сдвигает дату на n месяцев с прижатием к концу месяца.
func (d Date) AddMonths(n int) Date {
	return Date{Time: month.Add(d.Time, n)}
}

// Before сообщает, что d раньше o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After сообщает, что d позже o.
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

// Equal сообщает, что даты совпадают.
func (d Date) Equal(o Date) bool { return d.Time.Equal(o.Time) }

func (d Date) String() string {
	return civil.Format(d.Time)
}

// Ptr возвращает указатель на копию даты.
func (d Date) Ptr() *Date {
	return &d
}

// MarshalJSON реализует json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON реализует json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
