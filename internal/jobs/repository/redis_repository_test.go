package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amankumarsingh77/clipflow/internal/config"
	"github.com/amankumarsingh77/clipflow/internal/jobs"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func setupRepo(t *testing.T) (*jobsRedisRepo, *redis.Client, *clock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewJobsRedisRepo(client, config.QueueConfig{
		KeyPrefix: "test:jobs",
		AgingStep: time.Minute,
		Lease:     time.Minute,
		Retention: time.Hour,
	}).(*jobsRedisRepo)
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	repo.now = c.now
	return repo, client, c
}

func newJob(op models.OperationType, entity uuid.UUID, priority int, delay time.Duration) models.NewJob {
	return models.NewJob{
		ID:        uuid.NewString(),
		Key:       models.JobKey(op, entity),
		Operation: op,
		EntityID:  entity,
		Payload:   []byte(`{"op":"` + string(op) + `"}`),
		Priority:  priority,
		Delay:     delay,
	}
}

func TestAddDeduplicatesByKey(t *testing.T) {
	repo, client, _ := setupRepo(t)
	ctx := context.Background()
	entity := uuid.New()

	first, err := repo.Add(ctx, newJob(models.OpCrop, entity, 2, 0))
	require.NoError(t, err)
	require.True(t, first.Created)
	assert.Equal(t, models.JobWaiting, first.State)

	second, err := repo.Add(ctx, newJob(models.OpCrop, entity, 1, 0))
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Priority)

	n, err := client.ZCard(ctx, repo.waitingKey()).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	other, err := repo.Add(ctx, newJob(models.OpExport, entity, 2, 0))
	require.NoError(t, err)
	assert.True(t, other.Created)
}

func TestRemoveWaitingDeletesJob(t *testing.T) {
	repo, _, _ := setupRepo(t)
	ctx := context.Background()
	job := newJob(models.OpDownload, uuid.New(), 1, 0)

	_, err := repo.Add(ctx, job)
	require.NoError(t, err)

	out, err := repo.Remove(ctx, job.Key)
	require.NoError(t, err)
	assert.Equal(t, models.RemovedQueued, out)

	_, err = repo.Get(ctx, job.Key)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	out, err = repo.Remove(ctx, job.Key)
	require.NoError(t, err)
	assert.Equal(t, models.RemoveAbsent, out)

	claimed, err := repo.Claim(ctx, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestRemoveActiveOnlyFlagsCancellation(t *testing.T) {
	repo, _, _ := setupRepo(t)
	ctx := context.Background()
	job := newJob(models.OpTranscribe, uuid.New(), 1, 0)

	_, err := repo.Add(ctx, job)
	require.NoError(t, err)
	claimed, err := repo.Claim(ctx, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, models.JobActive, claimed.State)
	assert.Equal(t, 1, claimed.Attempts)

	out, err := repo.Remove(ctx, job.Key)
	require.NoError(t, err)
	assert.Equal(t, models.RemoveFlaggedActive, out)

	dup, err := repo.Add(ctx, newJob(models.OpTranscribe, job.EntityID, 1, 0))
	require.NoError(t, err)
	assert.False(t, dup.Created)
	assert.Equal(t, job.ID, dup.ID)

	cancel, err := repo.Progress(ctx, claimed.Claim(), 40, time.Minute)
	require.NoError(t, err)
	assert.True(t, cancel)

	snap, err := repo.Get(ctx, job.Key)
	require.NoError(t, err)
	assert.Equal(t, 40.0, snap.Progress)
	assert.True(t, snap.CancelRequested)
}

func TestDelayedJobBecomesClaimableWhenDue(t *testing.T) {
	repo, _, clk := setupRepo(t)
	ctx := context.Background()
	job := newJob(models.OpExport, uuid.New(), 1, 10*time.Minute)

	h, err := repo.Add(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, models.JobDelayed, h.State)
	assert.Equal(t, clk.t.Add(10*time.Minute), h.ReadyAt)

	claimed, err := repo.Claim(ctx, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, claimed)

	clk.advance(11 * time.Minute)
	claimed, err = repo.Claim(ctx, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, job.ID, claimed.ID)
}

func TestHigherPriorityServedFirst(t *testing.T) {
	repo, _, _ := setupRepo(t)
	ctx := context.Background()
	low := newJob(models.OpDownload, uuid.New(), 4, 0)
	high := newJob(models.OpDownload, uuid.New(), 1, 0)

	_, err := repo.Add(ctx, low)
	require.NoError(t, err)
	_, err = repo.Add(ctx, high)
	require.NoError(t, err)

	claimed, err := repo.Claim(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, high.ID, claimed.ID)
}

func TestLowerPriorityAgesPastFreshWork(t *testing.T) {
	repo, _, clk := setupRepo(t)
	ctx := context.Background()
	low := newJob(models.OpDownload, uuid.New(), 4, 0)
	_, err := repo.Add(ctx, low)
	require.NoError(t, err)

	clk.advance(5 * time.Minute)
	high := newJob(models.OpDownload, uuid.New(), 1, 0)
	_, err = repo.Add(ctx, high)
	require.NoError(t, err)

	claimed, err := repo.Claim(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, low.ID, claimed.ID)
}

func TestExpiredLeaseIsRequeued(t *testing.T) {
	repo, _, clk := setupRepo(t)
	ctx := context.Background()
	job := newJob(models.OpAnalyze, uuid.New(), 1, 0)
	_, err := repo.Add(ctx, job)
	require.NoError(t, err)

	_, err = repo.Claim(ctx, time.Second)
	require.NoError(t, err)

	clk.advance(2 * time.Second)
	again, err := repo.Claim(ctx, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, job.ID, again.ID)
	assert.Equal(t, 2, again.Attempts)
}

func TestStaleClaimantIsFencedAfterReclaim(t *testing.T) {
	repo, _, clk := setupRepo(t)
	ctx := context.Background()
	job := newJob(models.OpExport, uuid.New(), 1, 0)
	_, err := repo.Add(ctx, job)
	require.NoError(t, err)

	stale, err := repo.Claim(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, stale)

	clk.advance(2 * time.Second)
	live, err := repo.Claim(ctx, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, live)
	require.Equal(t, stale.ID, live.ID)
	require.Equal(t, 2, live.Attempts)

	_, err = repo.Progress(ctx, stale.Claim(), 90, time.Minute)
	assert.True(t, errors.Is(err, jobs.ErrLeaseLost))
	assert.True(t, errors.Is(repo.Complete(ctx, stale.Claim()), jobs.ErrLeaseLost))
	assert.True(t, errors.Is(repo.Fail(ctx, stale.Claim(), "late"), jobs.ErrLeaseLost))

	snap, err := repo.Get(ctx, job.Key)
	require.NoError(t, err)
	assert.Equal(t, models.JobActive, snap.State)
	assert.Equal(t, 0.0, snap.Progress)

	_, err = repo.Progress(ctx, live.Claim(), 50, time.Minute)
	require.NoError(t, err)
	require.NoError(t, repo.Complete(ctx, live.Claim()))
	snap, err = repo.Get(ctx, job.Key)
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, snap.State)
}

func TestKeysShareOneClusterSlot(t *testing.T) {
	repo, client, _ := setupRepo(t)
	ctx := context.Background()
	job := newJob(models.OpProbe, uuid.New(), 1, 0)
	_, err := repo.Add(ctx, job)
	require.NoError(t, err)

	keys, err := client.Keys(ctx, "*").Result()
	require.NoError(t, err)
	require.NotEmpty(t, keys)
	for _, k := range keys {
		assert.True(t, strings.HasPrefix(k, "{test:jobs}:"), k)
	}
	assert.Equal(t, "{test:jobs}:job:"+job.Key, repo.hashKey(job.Key))
}

func TestCompleteKeepsSnapshotForRetention(t *testing.T) {
	repo, client, _ := setupRepo(t)
	ctx := context.Background()
	job := newJob(models.OpCrop, uuid.New(), 1, 0)
	_, err := repo.Add(ctx, job)
	require.NoError(t, err)
	claimed, err := repo.Claim(ctx, time.Minute)
	require.NoError(t, err)

	require.NoError(t, repo.Complete(ctx, claimed.Claim()))
	snap, err := repo.Get(ctx, job.Key)
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, snap.State)
	assert.Equal(t, 100.0, snap.Progress)
	require.NotNil(t, snap.FinishedAt)

	ttl, err := client.PTTL(ctx, repo.hashKey(job.Key)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	err = repo.Complete(ctx, claimed.Claim())
	assert.True(t, errors.Is(err, jobs.ErrLeaseLost))

	next, err := repo.Add(ctx, newJob(models.OpCrop, job.EntityID, 1, 0))
	require.NoError(t, err)
	assert.True(t, next.Created)
	assert.NotEqual(t, job.ID, next.ID)
}

func TestProgressRejectsForeignJobID(t *testing.T) {
	repo, _, _ := setupRepo(t)
	ctx := context.Background()
	job := newJob(models.OpCrop, uuid.New(), 1, 0)
	_, err := repo.Add(ctx, job)
	require.NoError(t, err)
	claimed, err := repo.Claim(ctx, time.Minute)
	require.NoError(t, err)

	foreign := claimed.Claim()
	foreign.ID = "someone-else"
	_, err = repo.Progress(ctx, foreign, 10, time.Minute)
	assert.True(t, errors.Is(err, jobs.ErrLeaseLost))

	require.NoError(t, repo.Fail(ctx, claimed.Claim(), "boom"))
	snap, err := repo.Get(ctx, job.Key)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, snap.State)
	assert.Equal(t, "boom", snap.Error)
}
