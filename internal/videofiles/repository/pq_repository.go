package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/internal/videofiles"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/amankumarsingh77/clipflow/pkg/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type videoRepo struct {
	db *sqlx.DB
}

func NewVideoRepo(db *sqlx.DB) videofiles.Repository {
	return &videoRepo{db: db}
}

func (v *videoRepo) CreateVideo(ctx context.Context, video *models.Video) (*models.Video, error) {
	created := &models.Video{}
	if err := v.db.QueryRowxContext(
		ctx,
		createVideoQuery,
		video.VideoID,
		video.UserID,
		video.Title,
		video.Status,
		video.SourceType,
		video.SourceURL,
		video.FileName,
		video.FileSize,
		video.ContentType,
		video.UploadID,
		video.UploadKey,
		video.TotalParts,
		video.UploadExpiresAt,
		video.StorageKey,
		video.StorageURL,
		video.Config,
	).StructScan(created); err != nil {
		return nil, errors.Wrap(err, "videoRepo.CreateVideo.StructScan")
	}
	return created, nil
}

func (v *videoRepo) GetVideoByID(ctx context.Context, videoID uuid.UUID) (*models.Video, error) {
	video := &models.Video{}
	if err := v.db.GetContext(ctx, video, getVideoByIDQuery, videoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, errors.Wrap(err, "videoRepo.GetVideoByID.GetContext")
	}
	return video, nil
}

func (v *videoRepo) GetVideoByUploadSession(ctx context.Context, uploadID, uploadKey string) (*models.Video, error) {
	video := &models.Video{}
	if err := v.db.GetContext(ctx, video, getVideoByUploadSessionQuery, uploadID, uploadKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, errors.Wrap(err, "videoRepo.GetVideoByUploadSession.GetContext")
	}
	return video, nil
}

func (v *videoRepo) GetVideos(ctx context.Context, userID uuid.UUID, pq *utils.Pagination) ([]*models.Video, int, error) {
	var totalCount int
	if err := v.db.GetContext(ctx, &totalCount, getTotalVideosByUserIDQuery, userID); err != nil {
		return nil, 0, errors.Wrap(err, "videoRepo.GetVideos.GetContext.totalCount")
	}
	if totalCount == 0 {
		return []*models.Video{}, 0, nil
	}

	videos := make([]*models.Video, 0, pq.GetLimit())
	if err := v.db.SelectContext(ctx, &videos, getVideosByUserIDQuery, userID, pq.GetOffset(), pq.GetLimit()); err != nil {
		return nil, 0, errors.Wrap(err, "videoRepo.GetVideos.SelectContext")
	}
	return videos, totalCount, nil
}

func (v *videoRepo) TransitionStatus(ctx context.Context, videoID uuid.UUID, step lifecycle.Step[lifecycle.VideoStatus], patch *models.VideoPatch) (*models.Video, error) {
	if patch == nil {
		patch = &models.VideoPatch{}
	}
	video := &models.Video{}
	err := v.db.QueryRowxContext(
		ctx,
		transitionVideoQuery,
		videoID,
		step.From,
		step.To,
		patch.StorageKey,
		patch.StorageURL,
		patch.Config,
		patch.ErrorMessage,
	).StructScan(video)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, v.missingOrChanged(ctx, videoID)
		}
		return nil, errors.Wrap(err, "videoRepo.TransitionStatus.StructScan")
	}
	return video, nil
}

func (v *videoRepo) missingOrChanged(ctx context.Context, videoID uuid.UUID) error {
	var exists bool
	if err := v.db.GetContext(ctx, &exists, videoExistsQuery, videoID); err != nil {
		return errors.Wrap(err, "videoRepo.missingOrChanged.GetContext")
	}
	if !exists {
		return apperrors.ErrNotFound
	}
	return videofiles.ErrStatusChanged
}

func (v *videoRepo) SetDuration(ctx context.Context, videoID uuid.UUID, secs float64) error {
	if _, err := v.db.ExecContext(ctx, setDurationQuery, videoID, secs); err != nil {
		return errors.Wrap(err, "videoRepo.SetDuration.ExecContext")
	}
	return nil
}

func (v *videoRepo) CompleteAnalysis(ctx context.Context, videoID uuid.UUID, clips []*models.Clip) (*models.Video, error) {
	tx, err := v.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "videoRepo.CompleteAnalysis.BeginTxx")
	}
	defer func() { _ = tx.Rollback() }()

	video := &models.Video{}
	err = tx.QueryRowxContext(
		ctx,
		transitionVideoQuery,
		videoID,
		lifecycle.VideoAnalyzing,
		lifecycle.VideoCompleted,
		nil, nil, nil, nil,
	).StructScan(video)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, videofiles.ErrStatusChanged
		}
		return nil, errors.Wrap(err, "videoRepo.CompleteAnalysis.StructScan")
	}

	for _, c := range clips {
		if _, err := tx.NamedExecContext(ctx, insertDetectedClipQuery, c); err != nil {
			return nil, errors.Wrap(err, "videoRepo.CompleteAnalysis.NamedExecContext")
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "videoRepo.CompleteAnalysis.Commit")
	}
	return video, nil
}

func (v *videoRepo) DeleteVideoIfStatus(ctx context.Context, videoID uuid.UUID, status lifecycle.VideoStatus) (bool, error) {
	res, err := v.db.ExecContext(ctx, deleteVideoIfStatusQuery, videoID, status)
	if err != nil {
		return false, errors.Wrap(err, "videoRepo.DeleteVideoIfStatus.ExecContext")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "videoRepo.DeleteVideoIfStatus.RowsAffected")
	}
	return n > 0, nil
}

func (v *videoRepo) DeleteVideo(ctx context.Context, videoID uuid.UUID) error {
	res, err := v.db.ExecContext(ctx, deleteVideoQuery, videoID)
	if err != nil {
		return errors.Wrap(err, "videoRepo.DeleteVideo.ExecContext")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "videoRepo.DeleteVideo.RowsAffected")
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (v *videoRepo) ListExpiredUploads(ctx context.Context, before time.Time, limit int) ([]*models.Video, error) {
	videos := make([]*models.Video, 0)
	if err := v.db.SelectContext(ctx, &videos, listExpiredUploadsQuery, lifecycle.VideoAwaitingUpload, before, limit); err != nil {
		return nil, errors.Wrap(err, "videoRepo.ListExpiredUploads.SelectContext")
	}
	return videos, nil
}
