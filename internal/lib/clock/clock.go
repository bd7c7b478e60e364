// Package clock отделяет получение текущего времени от бизнес-логики,
// чтобы проходы пересчета и рассылки можно было запускать на заданную дату.
package clock

import (
	"sync"
	"time"
)

// Clock источник текущего времени.
type Clock interface {
	Now() time.Time
}

// Real системные часы.
type Real struct{}

// Now возвращает time.Now().
func (Real) Now() time.Time { return time.Now() }

// Fixed часы, которые показывают заданный момент, пока их не передвинут.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed создает часы, остановленные на now.
func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

// Now возвращает установленный момент.
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set переставляет часы.
func (f *Fixed) Set(now time.Time) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

// Advance сдвигает часы на d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Ticker периодический источник тиков.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewTicker создает Ticker с периодом d.
type NewTicker func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker обертка над time.Ticker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// ManualTicker срабатывает только по вызову Tick.
type ManualTicker struct {
	ch chan time.Time
}

// NewManualTicker создает ManualTicker.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time)}
}

// C канал тиков.
func (m *ManualTicker) C() <-chan time.Time { return m.ch }

// Stop ничего не делает.
func (m *ManualTicker) Stop() {}

// Tick отправляет тик и ждет, пока его заберут.
func (m *ManualTicker) Tick(t time.Time) { m.ch <- t }
