package repository

import (
	"context"
	"database/sql"

	"github.com/amankumarsingh77/clipflow/internal/clips"
	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type clipRepo struct {
	db *sqlx.DB
}

func NewClipRepo(db *sqlx.DB) clips.Repository {
	return &clipRepo{db: db}
}

func (r *clipRepo) GetClipByID(ctx context.Context, clipID uuid.UUID) (*models.Clip, error) {
	clip := &models.Clip{}
	if err := r.db.GetContext(ctx, clip, getClipByIDQuery, clipID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, errors.Wrap(err, "clipRepo.GetClipByID.GetContext")
	}
	return clip, nil
}

func (r *clipRepo) GetClipsByVideoID(ctx context.Context, videoID uuid.UUID) ([]*models.Clip, error) {
	list := make([]*models.Clip, 0)
	if err := r.db.SelectContext(ctx, &list, getClipsByVideoIDQuery, videoID); err != nil {
		return nil, errors.Wrap(err, "clipRepo.GetClipsByVideoID.SelectContext")
	}
	return list, nil
}

func (r *clipRepo) TransitionStatus(ctx context.Context, clipID uuid.UUID, step lifecycle.Step[lifecycle.ClipStatus], storageKey, errMsg *string) (*models.Clip, error) {
	clip := &models.Clip{}
	err := r.db.QueryRowxContext(ctx, transitionClipQuery, clipID, step.From, step.To, storageKey, errMsg).StructScan(clip)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.missingOrChanged(ctx, clipID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "clipRepo.TransitionStatus.StructScan")
	}
	return clip, nil
}

func (r *clipRepo) RecordExport(ctx context.Context, clipID uuid.UUID, step lifecycle.Step[lifecycle.ClipStatus]) (*models.Clip, error) {
	clip := &models.Clip{}
	err := r.db.QueryRowxContext(ctx, recordExportQuery, clipID, step.From, step.To).StructScan(clip)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.missingOrChanged(ctx, clipID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "clipRepo.RecordExport.StructScan")
	}
	return clip, nil
}

func (r *clipRepo) missingOrChanged(ctx context.Context, clipID uuid.UUID) error {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, clipExistsQuery, clipID); err != nil {
		return errors.Wrap(err, "clipRepo.missingOrChanged.GetContext")
	}
	if !exists {
		return apperrors.ErrNotFound
	}
	return clips.ErrStatusChanged
}

func (r *clipRepo) GetOperation(ctx context.Context, clipID uuid.UUID, op models.OperationType) (*models.ClipOperation, error) {
	row := &models.ClipOperation{}
	if err := r.db.GetContext(ctx, row, getOperationQuery, clipID, op); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, errors.Wrap(err, "clipRepo.GetOperation.GetContext")
	}
	return row, nil
}

func (r *clipRepo) ListOperations(ctx context.Context, clipID uuid.UUID) ([]*models.ClipOperation, error) {
	list := make([]*models.ClipOperation, 0)
	if err := r.db.SelectContext(ctx, &list, listOperationsQuery, clipID); err != nil {
		return nil, errors.Wrap(err, "clipRepo.ListOperations.SelectContext")
	}
	return list, nil
}

func (r *clipRepo) TransitionOperation(ctx context.Context, clipID uuid.UUID, op models.OperationType, step lifecycle.Step[lifecycle.SubOpStatus], patch *models.OperationPatch) (*models.ClipOperation, error) {
	if patch == nil {
		patch = &models.OperationPatch{}
	}
	row := &models.ClipOperation{}
	err := r.db.QueryRowxContext(ctx, transitionOperationQuery,
		clipID, op, step.From, step.To, patch.JobID, patch.ResultKey, patch.ErrorMessage,
	).StructScan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, clips.ErrStatusChanged
	}
	if err != nil {
		return nil, errors.Wrap(err, "clipRepo.TransitionOperation.StructScan")
	}
	return row, nil
}

func (r *clipRepo) SetOperationJob(ctx context.Context, clipID uuid.UUID, op models.OperationType, jobID string) error {
	res, err := r.db.ExecContext(ctx, setOperationJobQuery, clipID, op, jobID)
	if err != nil {
		return errors.Wrap(err, "clipRepo.SetOperationJob.ExecContext")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
