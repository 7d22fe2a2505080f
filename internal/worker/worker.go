package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/config"
	"github.com/amankumarsingh77/clipflow/internal/jobs"
	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/amankumarsingh77/clipflow/internal/media"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/internal/uploads"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
	"github.com/amankumarsingh77/clipflow/pkg/utils"
	"github.com/cenkalti/backoff/v4"
)

const (
	maxIdleBackoff  = 30 * time.Second
	janitorInterval = 5 * time.Minute
	janitorBatch    = 100
)

var (
	defaultCPUCheck = utils.CheckCPUUsage
	// cpuCheck is swapped in tests.
	cpuCheck = defaultCPUCheck
)

type Worker struct {
	cfg       *config.Config
	jobsUC    jobs.UseCase
	uploadsUC uploads.UseCase
	handler   models.PayloadHandler
	logger    logger.Logger
	wg        sync.WaitGroup
}

func NewWorker(cfg *config.Config, jobsUC jobs.UseCase, uploadsUC uploads.UseCase, handler models.PayloadHandler, log logger.Logger) *Worker {
	return &Worker{
		cfg:       cfg,
		jobsUC:    jobsUC,
		uploadsUC: uploadsUC,
		handler:   handler,
		logger:    log,
	}
}

// Start launches the consumers and the upload janitor. They stop when ctx is done.
func (w *Worker) Start(ctx context.Context) {
	count := w.cfg.Worker.WorkerCount
	if count < 1 {
		count = 1
	}
	w.logger.Infof("starting %d workers", count)
	for i := 0; i < count; i++ {
		w.wg.Add(1)
		go w.consume(ctx, i)
	}
	if w.uploadsUC != nil {
		w.wg.Add(1)
		go w.janitor(ctx)
	}
}

func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.cfg.Queue.PollInterval
	if b.InitialInterval <= 0 {
		b.InitialInterval = time.Second
	}
	b.MaxInterval = maxIdleBackoff
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (w *Worker) consume(ctx context.Context, n int) {
	defer w.wg.Done()
	log := w.logger.With("worker", n)
	idle := w.newBackoff()
	for ctx.Err() == nil {
		if ok, usage := cpuCheck(w.cfg.Worker.MaxCPUUsage); !ok {
			log.Infof("CPU usage is high: %.1f%%", usage)
			sleep(ctx, idle.NextBackOff())
			continue
		}
		job, err := w.jobsUC.ClaimJob(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Warnw("claim failed", "error", err)
			}
			sleep(ctx, idle.NextBackOff())
			continue
		}
		if job == nil {
			sleep(ctx, idle.NextBackOff())
			continue
		}
		idle.Reset()
		w.Process(ctx, job)
	}
}

// Process runs one claimed job and settles it in the queue.
func (w *Worker) Process(ctx context.Context, job *models.JobSnapshot) {
	log := w.logger.With("job_id", job.ID, "job_key", job.Key, "attempt", job.Attempts)
	jobCtx := logger.WithContext(ctx, log)
	start := time.Now()

	payload, err := models.DecodePayload(job.Payload)
	if err != nil {
		log.Errorw("undecodable payload", "error", err)
		w.fail(ctx, log, job, err.Error())
		return
	}

	err = payload.Accept(jobCtx, job, w.handler)
	var transitionErr *lifecycle.TransitionError
	switch {
	case err == nil:
		log.Infow("job completed", "took", time.Since(start).String())
		w.complete(ctx, log, job)
	case errors.Is(err, jobs.ErrLeaseLost):
		log.Warnw("lease lost, dropping result", "error", err)
	case errors.Is(err, media.ErrCancelled):
		log.Infow("job cancelled")
		w.fail(ctx, log, job, "cancelled")
	case errors.As(err, &transitionErr), errors.Is(err, apperrors.ErrNotFound):
		// The entity moved on or is gone; the work no longer applies.
		log.Infow("stale job", "reason", err.Error())
		w.complete(ctx, log, job)
	default:
		log.Errorw("job failed", "error", err)
		w.fail(ctx, log, job, err.Error())
	}
}

func (w *Worker) complete(ctx context.Context, log logger.Logger, job *models.JobSnapshot) {
	if err := w.jobsUC.CompleteJob(ctx, job); err != nil {
		log.Warnw("failed to mark job completed", "error", err)
	}
}

func (w *Worker) fail(ctx context.Context, log logger.Logger, job *models.JobSnapshot, reason string) {
	if err := w.jobsUC.FailJob(ctx, job, reason); err != nil {
		log.Warnw("failed to mark job failed", "error", err)
	}
}

func (w *Worker) janitor(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := w.uploadsUC.ExpireStaleUploads(ctx, now, janitorBatch)
			if err != nil {
				w.logger.Warnw("upload janitor failed", "error", err)
				continue
			}
			if n > 0 {
				w.logger.Infof("expired %d stale uploads", n)
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
