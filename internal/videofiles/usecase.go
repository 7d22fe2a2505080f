package videofiles

import (
	"context"

	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/pkg/utils"
	"github.com/google/uuid"
)

type UseCase interface {
	// CreateFromSource imports a YouTube or remote URL video and queues its probe.
	CreateFromSource(ctx context.Context, policy *models.Policy, input *models.ImportVideoInput) (*models.ImportVideoResult, error)
	GetVideo(ctx context.Context, policy *models.Policy, videoID uuid.UUID) (*models.Video, error)
	ListVideos(ctx context.Context, policy *models.Policy, pq *utils.Pagination) (*utils.Page[*models.Video], error)
	Configure(ctx context.Context, policy *models.Policy, videoID uuid.UUID, input *models.VideoConfig) (*models.ConfigureResult, error)
	GetDownloadURL(ctx context.Context, policy *models.Policy, videoID uuid.UUID) (*models.DownloadURL, error)
	// DeleteVideo removes the row, then cleans up jobs and blobs on a best-effort basis.
	DeleteVideo(ctx context.Context, policy *models.Policy, videoID uuid.UUID) (*models.DeleteResult, error)

	// Worker callbacks.
	RecordProbe(ctx context.Context, videoID uuid.UUID, probe *models.ProbeResult) error
	// AdvanceStage persists the transition for event before queueing the next stage.
	AdvanceStage(ctx context.Context, videoID uuid.UUID, event lifecycle.VideoEvent, priority int) (*models.JobHandle, error)
	CompleteAnalysis(ctx context.Context, videoID uuid.UUID, detected []models.DetectedClip) (*models.Video, error)
	Fail(ctx context.Context, videoID uuid.UUID, reason string) error
}
