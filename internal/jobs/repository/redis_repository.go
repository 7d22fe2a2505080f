package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/config"
	"github.com/amankumarsingh77/clipflow/internal/jobs"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Every key shares the {KeyPrefix} hash tag so the scripts touch a single
// cluster slot; claimScript derives job hash keys from ARGV.
type jobsRedisRepo struct {
	client    redis.UniversalClient
	prefix    string
	agingStep time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewJobsRedisRepo(client redis.UniversalClient, cfg config.QueueConfig) jobs.Queue {
	return &jobsRedisRepo{
		client:    client,
		prefix:    "{" + cfg.KeyPrefix + "}",
		agingStep: cfg.AgingStep,
		retention: cfg.Retention,
		now:       time.Now,
	}
}

func (r *jobsRedisRepo) hashPrefix() string        { return r.prefix + ":job:" }
func (r *jobsRedisRepo) hashKey(key string) string { return r.hashPrefix() + key }
func (r *jobsRedisRepo) waitingKey() string        { return r.prefix + ":waiting" }
func (r *jobsRedisRepo) delayedKey() string        { return r.prefix + ":delayed" }
func (r *jobsRedisRepo) activeKey() string         { return r.prefix + ":active" }

func ms(t time.Time) int64 { return t.UnixMilli() }

func (r *jobsRedisRepo) Add(ctx context.Context, job models.NewJob) (*models.JobHandle, error) {
	now := r.now()
	readyAt := now.Add(job.Delay)
	reply, err := addScript.Run(ctx, r.client,
		[]string{r.hashKey(job.Key), r.waitingKey(), r.delayedKey()},
		job.ID, job.Key, string(job.Operation), job.EntityID.String(), job.Priority, job.Payload,
		ms(now), ms(readyAt), r.agingStep.Milliseconds(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to add job %s: %w", job.Key, err)
	}
	res, err := replyStrings(reply, 5)
	if err != nil {
		return nil, fmt.Errorf("unexpected add reply for job %s: %w", job.Key, err)
	}
	priority, _ := strconv.Atoi(res[3])
	return &models.JobHandle{
		ID:        res[1],
		Key:       job.Key,
		Operation: job.Operation,
		EntityID:  job.EntityID,
		State:     models.JobState(res[2]),
		Priority:  priority,
		ReadyAt:   fromMs(res[4]),
		Created:   res[0] == "1",
	}, nil
}

func (r *jobsRedisRepo) Get(ctx context.Context, key string) (*models.JobSnapshot, error) {
	fields, err := r.client.HGetAll(ctx, r.hashKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read job %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return decodeSnapshot(fields)
}

func (r *jobsRedisRepo) Remove(ctx context.Context, key string) (models.RemoveOutcome, error) {
	out, err := removeScript.Run(ctx, r.client,
		[]string{r.hashKey(key), r.waitingKey(), r.delayedKey()}, key,
	).Text()
	if err != nil {
		return "", fmt.Errorf("failed to remove job %s: %w", key, err)
	}
	return models.RemoveOutcome(out), nil
}

func (r *jobsRedisRepo) Claim(ctx context.Context, lease time.Duration) (*models.JobSnapshot, error) {
	key, err := claimScript.Run(ctx, r.client,
		[]string{r.waitingKey(), r.delayedKey(), r.activeKey()},
		ms(r.now()), lease.Milliseconds(), r.agingStep.Milliseconds(), r.hashPrefix(), r.retention.Milliseconds(),
	).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	return r.Get(ctx, key)
}

func (r *jobsRedisRepo) Progress(ctx context.Context, claim models.Claim, progress float64, lease time.Duration) (bool, error) {
	res, err := progressScript.Run(ctx, r.client,
		[]string{r.hashKey(claim.Key), r.activeKey()},
		claim.ID, strconv.FormatFloat(progress, 'f', 2, 64), ms(r.now()), lease.Milliseconds(), claim.Key, claim.Attempt,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to report progress for job %s: %w", claim.Key, err)
	}
	if res < 0 {
		return false, jobs.ErrLeaseLost
	}
	return res == 1, nil
}

func (r *jobsRedisRepo) Complete(ctx context.Context, claim models.Claim) error {
	return r.finish(ctx, claim, models.JobCompleted, "")
}

func (r *jobsRedisRepo) Fail(ctx context.Context, claim models.Claim, reason string) error {
	return r.finish(ctx, claim, models.JobFailed, reason)
}

func (r *jobsRedisRepo) finish(ctx context.Context, claim models.Claim, state models.JobState, reason string) error {
	res, err := finishScript.Run(ctx, r.client,
		[]string{r.hashKey(claim.Key), r.activeKey()},
		claim.ID, string(state), ms(r.now()), r.retention.Milliseconds(), claim.Key, reason, claim.Attempt,
	).Int64()
	if err != nil {
		return fmt.Errorf("failed to mark job %s %s: %w", claim.Key, state, err)
	}
	if res == 0 {
		return jobs.ErrLeaseLost
	}
	return nil
}

func decodeSnapshot(f map[string]string) (*models.JobSnapshot, error) {
	entityID, err := uuid.Parse(f["entity"])
	if err != nil {
		return nil, fmt.Errorf("job %s has a malformed entity id: %w", f["key"], err)
	}
	priority, _ := strconv.Atoi(f["priority"])
	attempts, _ := strconv.Atoi(f["attempts"])
	progress, _ := strconv.ParseFloat(f["progress"], 64)

	snap := &models.JobSnapshot{
		JobHandle: models.JobHandle{
			ID:        f["id"],
			Key:       f["key"],
			Operation: models.OperationType(f["op"]),
			EntityID:  entityID,
			State:     models.JobState(f["state"]),
			Priority:  priority,
			ReadyAt:   fromMs(f["ready_at"]),
		},
		Progress:        progress,
		Attempts:        attempts,
		EnqueuedAt:      fromMs(f["enqueued_at"]),
		Error:           f["error"],
		CancelRequested: f["cancel"] == "1",
		Payload:         []byte(f["payload"]),
	}
	if v, ok := f["started_at"]; ok {
		t := fromMs(v)
		snap.StartedAt = &t
	}
	if v, ok := f["finished_at"]; ok {
		t := fromMs(v)
		snap.FinishedAt = &t
	}
	return snap, nil
}

func replyStrings(reply []interface{}, n int) ([]string, error) {
	if len(reply) != n {
		return nil, fmt.Errorf("got %d values, want %d", len(reply), n)
	}
	out := make([]string, n)
	for i, v := range reply {
		switch t := v.(type) {
		case string:
			out[i] = t
		case int64:
			out[i] = strconv.FormatInt(t, 10)
		default:
			return nil, fmt.Errorf("value %d has type %T", i, v)
		}
	}
	return out, nil
}

func fromMs(v string) time.Time {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(n).UTC()
}
