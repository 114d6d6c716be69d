package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/infrastructure/scheduler"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/infrastructure/scheduler/jobs"
)

var workerRunNow bool

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run scheduled maintenance until interrupted",
	Long: `Runs the background scheduler. The close_expired job deactivates
leaderboards and challenges past their end date on SCHEDULER_CLOSE_EXPIRED.

With EVENT_BUS=redis the worker also handles events published by other
instances on EVENT_CHANNEL.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().BoolVar(&workerRunNow, "run-now", false, "run every job once at startup")
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, log, shared.SystemClock{})
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return err
	}

	if workerRunNow {
		for _, info := range sched.ListJobs() {
			if _, err := sched.RunNow(ctx, info.Name); err != nil {
				log.Warn("startup run failed", zap.String("job", info.Name), zap.Error(err))
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if !cfg.Scheduler.Enabled {
			log.Info("scheduler disabled")
			return nil
		}
		if err := sched.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return sched.Stop()
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("received shutdown signal, stopping worker",
			zap.Duration("timeout", cfg.App.ShutdownTimeout))
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}
	select {
	case err := <-done:
		log.Info("shutdown completed", zap.Any("metrics", a.bus.Metrics().Snapshot()))
		return err
	case <-time.After(cfg.App.ShutdownTimeout):
		return errors.New("shutdown timed out")
	}
}

// newScheduler registers the maintenance jobs from configuration.
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(scheduler.Config{
		Logger: a.logger,
		Tick:   a.cfg.Scheduler.Tick,
	})

	schedule, err := scheduler.ParseSchedule(a.cfg.Scheduler.CloseExpired, a.cfg.App.Location)
	if err != nil {
		return nil, err
	}
	job := withTimeout(jobs.NewCloseExpiredJob(a.engine, a.logger), a.cfg.Scheduler.JobTimeout)
	if err := sched.Register(job, schedule); err != nil {
		return nil, err
	}
	return sched, nil
}

// timeoutJob bounds each run of a job.
type timeoutJob struct {
	scheduler.Job
	timeout time.Duration
}

func withTimeout(job scheduler.Job, timeout time.Duration) scheduler.Job {
	if timeout <= 0 {
		return job
	}
	return timeoutJob{Job: job, timeout: timeout}
}

func (j timeoutJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	return j.Job.Run(ctx)
}
