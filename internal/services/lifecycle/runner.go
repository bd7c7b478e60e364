package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/clock"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
)

// Evaluator запускает пересчет всех подписок.
type Evaluator interface {
	EvaluateAll(ctx context.Context) (*EvaluationResult, error)
}

// Runner выполняет пересчет при старте и затем каждые interval.
type Runner struct {
	evaluator Evaluator
	interval  time.Duration
	newTicker clock.NewTicker
	log       *slog.Logger
}

// NewRunner создает Runner. Нулевой interval означает раз в сутки.
func NewRunner(evaluator Evaluator, interval time.Duration, log *slog.Logger) *Runner {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Runner{evaluator: evaluator, interval: interval, newTicker: clock.NewRealTicker, log: log}
}

// WithTicker подменяет источник тиков.
func (r *Runner) WithTicker(newTicker clock.NewTicker) *Runner {
	r.newTicker = newTicker
	return r
}

// Run блокируется до отмены ctx.
func (r *Runner) Run(ctx context.Context) error {
	r.runOnce(ctx)

	ticker := r.newTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	res, err := r.evaluator.EvaluateAll(ctx)
	if err != nil {
		r.log.Error("lifecycle pass failed", sl.Err(err))
		return
	}
	r.log.Info("lifecycle pass finished",
		slog.String("today", res.Today.String()),
		slog.Int("evaluated", res.Evaluated),
		slog.Int("applied", len(res.Applied)),
		slog.Int("duplicates", res.Duplicates),
		slog.Int("stale", res.Stale),
		slog.Int("failed", len(res.Failed)),
	)
}
