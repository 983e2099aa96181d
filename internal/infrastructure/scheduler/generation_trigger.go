package scheduler

import (
	"context"
	"sync"
	"time"

	appinvoicing "github.com/invoicehub/backend/internal/application/invoicing"
	"go.uber.org/zap"
)

// GenerationRunner runs one pass of due recurring invoice generation.
// Implemented by the recurring invoice application service.
type GenerationRunner interface {
	RunDue(ctx context.Context, asOf time.Time) (appinvoicing.RunReport, error)
}

// GenerationTriggerConfig holds configuration for the generation trigger
type GenerationTriggerConfig struct {
	// CheckInterval is how often to check whether today's run is still pending
	CheckInterval time.Duration
}

// DefaultGenerationTriggerConfig returns default generation trigger configuration
func DefaultGenerationTriggerConfig() GenerationTriggerConfig {
	return GenerationTriggerConfig{
		CheckInterval: time.Hour,
	}
}

// GenerationTrigger periodically runs due recurring invoice generation.
// Due-ness is a calendar property, so the trigger runs at most once per day
// and checks on an interval; a restart inside the same day runs again, which
// is safe because generation itself re-checks due-ness per record.
type GenerationTrigger struct {
	config GenerationTriggerConfig
	runner GenerationRunner
	logger *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewGenerationTrigger creates a new generation trigger
func NewGenerationTrigger(config GenerationTriggerConfig, runner GenerationRunner, logger *zap.Logger) *GenerationTrigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultGenerationTriggerConfig().CheckInterval
	}
	return &GenerationTrigger{
		config: config,
		runner: runner,
		logger: logger,
	}
}

// Start starts the generation trigger
func (g *GenerationTrigger) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.isRunning {
		g.mu.Unlock()
		return nil
	}
	g.isRunning = true
	g.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel

	g.wg.Add(1)
	go g.runLoop(ctx)

	g.logger.Info("Generation trigger started",
		zap.Duration("check_interval", g.config.CheckInterval),
	)

	return nil
}

// Stop stops the generation trigger and waits for an in-flight run
func (g *GenerationTrigger) Stop(ctx context.Context) error {
	g.mu.Lock()
	if !g.isRunning {
		g.mu.Unlock()
		return nil
	}
	g.isRunning = false
	g.mu.Unlock()

	if g.cancel != nil {
		g.cancel()
	}

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		g.logger.Info("Generation trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop checks periodically whether today's generation run is still pending
func (g *GenerationTrigger) runLoop(ctx context.Context) {
	defer g.wg.Done()

	// First check shortly after startup so a restart does not push the run
	// a full interval into the day.
	g.checkAndRun(ctx)

	ticker := time.NewTicker(g.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.checkAndRun(ctx)
		}
	}
}

// checkAndRun runs due generation once per calendar day
func (g *GenerationTrigger) checkAndRun(ctx context.Context) {
	now := time.Now()
	currentDate := now.Format("2006-01-02")

	g.mu.Lock()
	if g.lastRunDate == currentDate {
		g.mu.Unlock()
		return
	}
	g.lastRunDate = currentDate
	g.mu.Unlock()

	g.logger.Info("Running due recurring invoice generation",
		zap.String("run_date", currentDate),
	)

	report, err := g.runner.RunDue(ctx, now)
	if err != nil {
		g.logger.Error("Recurring invoice generation run failed", zap.Error(err))
		// Leave lastRunDate set; the next day retries. Per-record failures
		// inside a run are already audited and do not surface here.
		return
	}

	g.logger.Info("Recurring invoice generation run finished",
		zap.Int("due", report.Due),
		zap.Int("generated", report.Generated),
		zap.Int("failed", report.Failed),
	)
}

// TriggerManualRun forces a run now, bypassing the once-per-day guard.
// Used by the internal trigger endpoint.
func (g *GenerationTrigger) TriggerManualRun(ctx context.Context) (appinvoicing.RunReport, error) {
	now := time.Now()

	g.mu.Lock()
	g.lastRunDate = now.Format("2006-01-02")
	g.mu.Unlock()

	return g.runner.RunDue(ctx, now)
}
