package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gearhire-backend/internal/config"
	"gearhire-backend/internal/logger"
	"gearhire-backend/internal/metrics"
	"gearhire-backend/internal/service"
)

const (
	JobAssessLateFees      = "assess-late-fees"
	JobSendReturnReminders = "send-return-reminders"
	JobExpirePendingOrders = "expire-pending-orders"
)

// jobTimeout bounds a single scheduled run.
const jobTimeout = 10 * time.Minute

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	orders service.OrderService
	config *config.Config
	now    func() time.Time
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(orders service.OrderService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		orders: orders,
		config: cfg,
		now:    time.Now,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

func (jr *JobRunner) jobs() map[string]func(context.Context, time.Time) (int, error) {
	return map[string]func(context.Context, time.Time) (int, error){
		JobAssessLateFees:      jr.orders.AssessLateFees,
		JobSendReturnReminders: jr.orders.SendReturnReminders,
		JobExpirePendingOrders: jr.orders.ExpirePendingOrders,
	}
}

// JobNames lists the jobs Run accepts, sorted.
func (jr *JobRunner) JobNames() []string {
	names := make([]string, 0, 3)
	for name := range jr.jobs() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes one job by name and returns how many orders it touched.
func (jr *JobRunner) Run(ctx context.Context, name string) (int, error) {
	fn, ok := jr.jobs()[name]
	if !ok {
		return 0, fmt.Errorf("unknown job %q", name)
	}
	return jr.runWithRecovery(ctx, name, fn)
}

// RunAll runs every job once, in name order, and returns the first error.
func (jr *JobRunner) RunAll(ctx context.Context) error {
	var firstErr error
	for _, name := range jr.JobNames() {
		if _, err := jr.Run(ctx, name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(ctx context.Context, name string, fn func(context.Context, time.Time) (int, error)) (n int, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", name, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", name, r)
		}
		metrics.RecordJob(name, err, start)
	}()

	logger.Info("Starting job", "job", name)
	n, err = fn(ctx, jr.now().UTC())
	if err != nil {
		logger.Error("Job failed", "job", name, "processed", n, "error", err)
		return n, err
	}
	logger.Info("Job completed", "job", name, "processed", n, "duration_ms", time.Since(start).Milliseconds())
	return n, nil
}
