package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/crm/backend/internal/domain/report"
	"go.uber.org/zap"
)

// MonthlyTriggerConfig sets when the previous month is archived: the first
// day of each month, at Hour UTC or later.
type MonthlyTriggerConfig struct {
	Hour          int
	CheckInterval time.Duration
}

func DefaultMonthlyTriggerConfig() MonthlyTriggerConfig {
	return MonthlyTriggerConfig{Hour: 2, CheckInterval: time.Minute}
}

// MonthlyTrigger submits archive jobs for the month that just ended. Runs are
// remembered in memory only, so a restart on the first of the month archives
// again; archive keys are per period, which makes that an overwrite.
type MonthlyTrigger struct {
	config    MonthlyTriggerConfig
	scheduler *Scheduler
	logger    *zap.Logger
	now       func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRun   report.Period
}

func NewMonthlyTrigger(config MonthlyTriggerConfig, scheduler *Scheduler, logger *zap.Logger) *MonthlyTrigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	return &MonthlyTrigger{
		config:    config,
		scheduler: scheduler,
		logger:    logger.Named("monthly_trigger"),
		now:       time.Now,
	}
}

func (t *MonthlyTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning {
		return nil
	}
	t.isRunning = true

	ctx, t.cancel = context.WithCancel(ctx)
	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Monthly report archive trigger started",
		zap.Int("hour_utc", t.config.Hour),
		zap.Duration("check_interval", t.config.CheckInterval),
	)
	return nil
}

func (t *MonthlyTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	t.cancel()
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *MonthlyTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()
	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.checkAndTrigger()
		}
	}
}

// checkAndTrigger reports whether archive jobs were submitted.
func (t *MonthlyTrigger) checkAndTrigger() bool {
	now := t.now().UTC()
	if now.Day() != 1 || now.Hour() < t.config.Hour {
		return false
	}
	prev := now.AddDate(0, 0, -1)
	period := report.Period{Year: prev.Year(), Month: int(prev.Month())}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastRun == period {
		return false
	}
	if err := t.scheduler.ScheduleArchive(period); err != nil {
		t.logger.Error("Failed to schedule report archive", zap.Int("year", period.Year), zap.Int("month", period.Month), zap.Error(err))
		return false
	}
	t.lastRun = period
	t.logger.Info("Report archive scheduled", zap.Int("year", period.Year), zap.Int("month", period.Month))
	return true
}
