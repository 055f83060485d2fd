package cronrunner

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one background pass. Returned errors are logged, never retried early.
type Job func(ctx context.Context) error

// Runner schedules named jobs on a shared base context. A job still running
// when its next tick fires is skipped for that tick.
type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger), cron.Recover(cron.DiscardLogger)),
		),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

// Add registers job under name. timeout <= 0 means the job runs until the
// base context ends.
func (r *Runner) Add(name, spec string, timeout time.Duration, job Job) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() { r.run(name, timeout, job) })
}

func (r *Runner) run(name string, timeout time.Duration, job Job) {
	ctx := r.baseCtx
	if ctx.Err() != nil {
		return
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	err := job(ctx)
	if r.logger == nil {
		return
	}
	if err != nil {
		r.logger.Warn("cron job failed", zap.String("job", name), zap.Duration("took", time.Since(start)), zap.Error(err))
		return
	}
	r.logger.Debug("cron job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
}

func (r *Runner) Start() {
	if r.logger != nil {
		r.logger.Info("cron started", zap.Int("jobs", len(r.cron.Entries())))
	}
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	if r.logger != nil {
		r.logger.Info("cron stopped")
	}
}
