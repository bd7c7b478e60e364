// Package scheduler запускает проход рассылки напоминаний по cron-расписанию.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// ErrBusy предыдущий проход еще не закончился.
var ErrBusy = errors.New("notification pass already running")

// Runner один проход рассылки.
type Runner interface {
	Run(ctx context.Context) (*models.RunResult, error)
}

// SchedulerService не дает проходам пересекаться и запускает их по расписанию.
type SchedulerService struct {
	runner Runner
	spec   string
	loc    *time.Location
	log    *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewSchedulerService создает новый экземпляр SchedulerService.
// spec стандартное cron-выражение из пяти полей в поясе loc.
func NewSchedulerService(runner Runner, spec string, loc *time.Location, log *slog.Logger) (*SchedulerService, error) {
	const op = "scheduler.New"
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SchedulerService{runner: runner, spec: spec, loc: loc, log: log}, nil
}

// RunOnce выполняет проход, если другой проход сейчас не идет.
func (s *SchedulerService) RunOnce(ctx context.Context) (*models.RunResult, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()
	return s.runner.Run(ctx)
}

// Start блокируется до отмены ctx, запуская проходы по расписанию.
// Пропущенные запуски не догоняются.
func (s *SchedulerService) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(s.loc))
	_, err := c.AddFunc(s.spec, func() {
		res, err := s.RunOnce(ctx)
		if err != nil {
			s.log.Error("scheduled notification pass failed", sl.Err(err))
			return
		}
		s.log.Info("scheduled notification pass done",
			slog.String("run_id", res.RunID),
			slog.Int("sent", res.NotificationsSent),
			slog.Int("failed", res.NotificationsFailed),
		)
	})
	if err != nil {
		return fmt.Errorf("scheduler.Start: %w", err)
	}

	c.Start()
	s.log.Info("notification scheduler started", slog.String("cron", s.spec), slog.String("timezone", s.loc.String()))

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("notification scheduler stopped")
	return nil
}
