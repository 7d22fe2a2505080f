package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/google/uuid"
)

// Dispatcher is an in-memory jobs.UseCase keeping the jobKey dedup rule. Enqueued
// counts only calls that created a job; AddCalls counts every call.
type Dispatcher struct {
	mu       sync.Mutex
	jobs     map[string]*models.JobSnapshot
	Enqueued int
	AddCalls int
	Removed  int
	// AddErr, when set, is returned by AddJob without touching state.
	AddErr error
	// GetErr, when set, is returned by GetJob.
	GetErr error
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{jobs: make(map[string]*models.JobSnapshot)}
}

func (d *Dispatcher) Snapshot(op models.OperationType, entityID uuid.UUID) *models.JobSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	j, ok := d.jobs[models.JobKey(op, entityID)]
	if !ok {
		return nil
	}
	cp := *j
	return &cp
}

// Payloads returns the decoded payloads of every live job for op.
func (d *Dispatcher) Payloads(op models.OperationType) []models.Payload {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []models.Payload
	for _, j := range d.jobs {
		if j.Operation != op || !j.State.Live() {
			continue
		}
		if p, err := models.DecodePayload(j.Payload); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Start marks a queued job active as a worker claim would.
func (d *Dispatcher) Start(op models.OperationType, entityID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if j, ok := d.jobs[models.JobKey(op, entityID)]; ok {
		j.State = models.JobActive
	}
}

func (d *Dispatcher) AddJob(_ context.Context, payload models.Payload, priority int, delay time.Duration) (*models.JobHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.AddCalls++
	if d.AddErr != nil {
		return nil, apperrors.Queue("add job", d.AddErr)
	}
	key := models.JobKey(payload.Operation(), payload.EntityID())
	if j, ok := d.jobs[key]; ok && j.State.Live() {
		h := j.JobHandle
		return &h, nil
	}
	raw, err := models.EncodePayload(payload)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	state := models.JobWaiting
	if delay > 0 {
		state = models.JobDelayed
	}
	if priority < models.HighestPriority {
		priority = models.DefaultPriority
	}
	snap := &models.JobSnapshot{
		JobHandle: models.JobHandle{
			ID:        uuid.NewString(),
			Key:       key,
			Operation: payload.Operation(),
			EntityID:  payload.EntityID(),
			State:     state,
			Priority:  priority,
			ReadyAt:   now.Add(delay),
			Created:   true,
		},
		EnqueuedAt: now,
		Payload:    raw,
	}
	d.jobs[key] = snap
	d.Enqueued++
	h := snap.JobHandle
	return &h, nil
}

func (d *Dispatcher) GetJob(_ context.Context, op models.OperationType, entityID uuid.UUID) (*models.JobSnapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.GetErr != nil {
		return nil, apperrors.Queue("get job", d.GetErr)
	}
	j, ok := d.jobs[models.JobKey(op, entityID)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *j
	cp.Created = false
	return &cp, nil
}

func (d *Dispatcher) RemoveJob(_ context.Context, op models.OperationType, entityID uuid.UUID) (models.RemoveOutcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := models.JobKey(op, entityID)
	j, ok := d.jobs[key]
	switch {
	case !ok || !j.State.Live():
		return models.RemoveAbsent, nil
	case j.State == models.JobActive:
		j.CancelRequested = true
		return models.RemoveFlaggedActive, nil
	default:
		delete(d.jobs, key)
		d.Removed++
		return models.RemovedQueued, nil
	}
}

func (d *Dispatcher) RescheduleJob(ctx context.Context, payload models.Payload, priority int, delay time.Duration) (*models.JobHandle, error) {
	out, err := d.RemoveJob(ctx, payload.Operation(), payload.EntityID())
	if err != nil {
		return nil, err
	}
	if out == models.RemoveFlaggedActive {
		return nil, apperrors.ErrConflict
	}
	return d.AddJob(ctx, payload, priority, delay)
}

func (d *Dispatcher) ClaimJob(context.Context) (*models.JobSnapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, j := range d.jobs {
		if j.State == models.JobWaiting {
			j.State = models.JobActive
			j.Attempts++
			cp := *j
			return &cp, nil
		}
	}
	return nil, nil
}

func (d *Dispatcher) ReportProgress(_ context.Context, job *models.JobSnapshot, progress float64) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	j, ok := d.jobs[job.Key]
	if !ok || j.ID != job.ID {
		return false, apperrors.ErrNotFound
	}
	j.Progress = progress
	return j.CancelRequested, nil
}

func (d *Dispatcher) CompleteJob(_ context.Context, job *models.JobSnapshot) error {
	return d.finish(job, models.JobCompleted, "")
}

func (d *Dispatcher) FailJob(_ context.Context, job *models.JobSnapshot, reason string) error {
	return d.finish(job, models.JobFailed, reason)
}

func (d *Dispatcher) finish(job *models.JobSnapshot, state models.JobState, reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	j, ok := d.jobs[job.Key]
	if !ok || j.ID != job.ID {
		return apperrors.ErrNotFound
	}
	now := time.Now()
	j.State = state
	j.Error = reason
	j.FinishedAt = &now
	return nil
}
