package videofiles

import (
	"context"
	"errors"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/pkg/utils"
	"github.com/google/uuid"
)

// ErrStatusChanged means a compare-and-set transition lost to a concurrent writer.
var ErrStatusChanged = errors.New("video status changed concurrently")

type Repository interface {
	CreateVideo(ctx context.Context, video *models.Video) (*models.Video, error)
	GetVideoByID(ctx context.Context, videoID uuid.UUID) (*models.Video, error)
	GetVideoByUploadSession(ctx context.Context, uploadID, uploadKey string) (*models.Video, error)
	GetVideos(ctx context.Context, userID uuid.UUID, pq *utils.Pagination) ([]*models.Video, int, error)
	// TransitionStatus moves the row from step.From to step.To only if it is still
	// in step.From, returning ErrStatusChanged otherwise.
	TransitionStatus(ctx context.Context, videoID uuid.UUID, step lifecycle.Step[lifecycle.VideoStatus], patch *models.VideoPatch) (*models.Video, error)
	SetDuration(ctx context.Context, videoID uuid.UUID, secs float64) error
	// CompleteAnalysis inserts the detected clips and moves the video from
	// analyzing to completed in one transaction.
	CompleteAnalysis(ctx context.Context, videoID uuid.UUID, clips []*models.Clip) (*models.Video, error)
	DeleteVideoIfStatus(ctx context.Context, videoID uuid.UUID, status lifecycle.VideoStatus) (bool, error)
	DeleteVideo(ctx context.Context, videoID uuid.UUID) error
	ListExpiredUploads(ctx context.Context, before time.Time, limit int) ([]*models.Video, error)
}
