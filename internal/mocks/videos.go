package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/internal/videofiles"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/amankumarsingh77/clipflow/pkg/utils"
	"github.com/google/uuid"
)

// VideoRepo is an in-memory videofiles.Repository with the same compare-and-set
// semantics as the SQL one.
type VideoRepo struct {
	mu     sync.Mutex
	videos map[uuid.UUID]*models.Video
	// Clips receives the rows written by CompleteAnalysis when set.
	Clips *ClipRepo
}

func NewVideoRepo() *VideoRepo {
	return &VideoRepo{videos: make(map[uuid.UUID]*models.Video)}
}

// Put stores a copy of v, overwriting any existing row.
func (r *VideoRepo) Put(v *models.Video) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.videos[v.VideoID] = &cp
}

func (r *VideoRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.videos)
}

func (r *VideoRepo) CreateVideo(_ context.Context, video *models.Video) (*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	cp := *video
	cp.CreatedAt, cp.UpdatedAt = now, now
	r.videos[cp.VideoID] = &cp
	out := cp
	return &out, nil
}

func (r *VideoRepo) GetVideoByID(_ context.Context, videoID uuid.UUID) (*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[videoID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *VideoRepo) GetVideoByUploadSession(_ context.Context, uploadID, uploadKey string) (*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.videos {
		if v.UploadID != nil && v.UploadKey != nil && *v.UploadID == uploadID && *v.UploadKey == uploadKey {
			cp := *v
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *VideoRepo) GetVideos(_ context.Context, userID uuid.UUID, pq *utils.Pagination) ([]*models.Video, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*models.Video
	for _, v := range r.videos {
		if v.UserID == userID {
			cp := *v
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	start := pq.GetOffset()
	if start > total {
		start = total
	}
	end := start + pq.GetLimit()
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *VideoRepo) TransitionStatus(_ context.Context, videoID uuid.UUID, step lifecycle.Step[lifecycle.VideoStatus], patch *models.VideoPatch) (*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[videoID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if v.Status != step.From {
		return nil, videofiles.ErrStatusChanged
	}
	v.Status = step.To
	if patch != nil {
		if patch.StorageKey != nil {
			v.StorageKey = patch.StorageKey
		}
		if patch.StorageURL != nil {
			v.StorageURL = patch.StorageURL
		}
		if len(patch.Config) > 0 {
			v.Config = patch.Config
		}
		if patch.ErrorMessage != nil {
			v.ErrorMessage = patch.ErrorMessage
		}
	}
	v.UpdatedAt = time.Now().UTC()
	cp := *v
	return &cp, nil
}

func (r *VideoRepo) SetDuration(_ context.Context, videoID uuid.UUID, secs float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[videoID]
	if !ok {
		return apperrors.ErrNotFound
	}
	v.DurationSecs = &secs
	return nil
}

func (r *VideoRepo) CompleteAnalysis(_ context.Context, videoID uuid.UUID, clips []*models.Clip) (*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[videoID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if v.Status != lifecycle.VideoAnalyzing {
		return nil, videofiles.ErrStatusChanged
	}
	v.Status = lifecycle.VideoCompleted
	if r.Clips != nil {
		for _, c := range clips {
			r.Clips.Put(c)
		}
	}
	cp := *v
	return &cp, nil
}

func (r *VideoRepo) DeleteVideoIfStatus(_ context.Context, videoID uuid.UUID, status lifecycle.VideoStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[videoID]
	if !ok || v.Status != status {
		return false, nil
	}
	delete(r.videos, videoID)
	return true, nil
}

func (r *VideoRepo) DeleteVideo(_ context.Context, videoID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[videoID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.videos, videoID)
	if r.Clips != nil {
		r.Clips.deleteForVideo(videoID)
	}
	return nil
}

func (r *VideoRepo) ListExpiredUploads(_ context.Context, before time.Time, limit int) ([]*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Video
	for _, v := range r.videos {
		if v.Status == lifecycle.VideoAwaitingUpload && v.UploadExpiresAt != nil && v.UploadExpiresAt.Before(before) {
			cp := *v
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
