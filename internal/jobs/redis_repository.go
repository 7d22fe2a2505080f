package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/models"
)

// ErrLeaseLost is returned to a worker that reports on a job it no longer owns.
var ErrLeaseLost = errors.New("job lease lost")

// Queue is a priority and delay capable backend with lookup by job key.
type Queue interface {
	// Add enqueues job unless a waiting, delayed or active job already holds
	// its key, in which case the existing handle comes back with Created=false.
	Add(ctx context.Context, job models.NewJob) (*models.JobHandle, error)
	// Get returns apperrors.ErrNotFound when no job is stored under key.
	Get(ctx context.Context, key string) (*models.JobSnapshot, error)
	Remove(ctx context.Context, key string) (models.RemoveOutcome, error)
	// Claim leases the best ready job, or returns nil when none is ready.
	Claim(ctx context.Context, lease time.Duration) (*models.JobSnapshot, error)
	// Progress extends the lease and reports whether cancellation was requested.
	// Progress, Complete and Fail return ErrLeaseLost unless claim still holds
	// the job's current lease.
	Progress(ctx context.Context, claim models.Claim, progress float64, lease time.Duration) (bool, error)
	Complete(ctx context.Context, claim models.Claim) error
	Fail(ctx context.Context, claim models.Claim, reason string) error
}
