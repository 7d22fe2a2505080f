package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/clips"
	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/google/uuid"
)

type opKey struct {
	clip uuid.UUID
	op   models.OperationType
}

// ClipRepo is an in-memory clips.Repository.
type ClipRepo struct {
	mu    sync.Mutex
	clips map[uuid.UUID]*models.Clip
	ops   map[opKey]*models.ClipOperation
}

func NewClipRepo() *ClipRepo {
	return &ClipRepo{
		clips: make(map[uuid.UUID]*models.Clip),
		ops:   make(map[opKey]*models.ClipOperation),
	}
}

func (r *ClipRepo) Put(c *models.Clip) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.clips[c.ClipID] = &cp
}

// PutOperation stores an operation row as is.
func (r *ClipRepo) PutOperation(o *models.ClipOperation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.ops[opKey{o.ClipID, o.Operation}] = &cp
}

func (r *ClipRepo) deleteForVideo(videoID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.clips {
		if c.VideoID != videoID {
			continue
		}
		delete(r.clips, id)
		for k := range r.ops {
			if k.clip == id {
				delete(r.ops, k)
			}
		}
	}
}

func (r *ClipRepo) GetClipByID(_ context.Context, clipID uuid.UUID) (*models.Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clips[clipID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *ClipRepo) GetClipsByVideoID(_ context.Context, videoID uuid.UUID) ([]*models.Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Clip, 0)
	for _, c := range r.clips {
		if c.VideoID == videoID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartSec < out[j].StartSec })
	return out, nil
}

func (r *ClipRepo) TransitionStatus(_ context.Context, clipID uuid.UUID, step lifecycle.Step[lifecycle.ClipStatus], storageKey, errMsg *string) (*models.Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clips[clipID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if c.Status != step.From {
		return nil, clips.ErrStatusChanged
	}
	c.Status = step.To
	if storageKey != nil {
		c.StorageKey = storageKey
	}
	if errMsg != nil {
		c.ErrorMessage = errMsg
	}
	cp := *c
	return &cp, nil
}

func (r *ClipRepo) RecordExport(_ context.Context, clipID uuid.UUID, step lifecycle.Step[lifecycle.ClipStatus]) (*models.Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clips[clipID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if c.Status != step.From {
		return nil, clips.ErrStatusChanged
	}
	c.Status = step.To
	c.ExportCount++
	cp := *c
	return &cp, nil
}

func (r *ClipRepo) GetOperation(_ context.Context, clipID uuid.UUID, op models.OperationType) (*models.ClipOperation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.ops[opKey{clipID, op}]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *ClipRepo) ListOperations(_ context.Context, clipID uuid.UUID) ([]*models.ClipOperation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.ClipOperation, 0)
	for k, o := range r.ops {
		if k.clip == clipID {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out, nil
}

func (r *ClipRepo) TransitionOperation(_ context.Context, clipID uuid.UUID, op models.OperationType, step lifecycle.Step[lifecycle.SubOpStatus], patch *models.OperationPatch) (*models.ClipOperation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := opKey{clipID, op}
	o, ok := r.ops[k]
	switch {
	case !ok && step.From != lifecycle.SubOpNotStarted:
		return nil, clips.ErrStatusChanged
	case !ok:
		o = &models.ClipOperation{ClipID: clipID, Operation: op}
		r.ops[k] = o
	case o.Status != step.From:
		return nil, clips.ErrStatusChanged
	}
	o.Status = step.To
	o.UpdatedAt = time.Now()
	if patch != nil {
		if patch.JobID != nil {
			o.JobID = patch.JobID
		}
		if patch.ResultKey != nil {
			o.ResultKey = patch.ResultKey
		}
		o.ErrorMessage = patch.ErrorMessage
	}
	cp := *o
	return &cp, nil
}

func (r *ClipRepo) SetOperationJob(_ context.Context, clipID uuid.UUID, op models.OperationType, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.ops[opKey{clipID, op}]
	if !ok {
		return apperrors.ErrNotFound
	}
	o.JobID = &jobID
	return nil
}
