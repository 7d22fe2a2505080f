package uploads

import (
	"context"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/models"
)

// UseCase is the upload session manager. Every call takes the caller policy
// resolved once per request.
type UseCase interface {
	InitUpload(ctx context.Context, policy *models.Policy, input *models.InitUploadInput) (*models.InitUploadResult, error)
	GetPartURL(ctx context.Context, policy *models.Policy, input *models.PartURLInput) (*models.PartURL, error)
	GetBatchPartURLs(ctx context.Context, policy *models.Policy, input *models.BatchPartURLInput) ([]models.PartURL, error)
	ListUploadedParts(ctx context.Context, policy *models.Policy, sessionID, storageKey string) ([]models.UploadedPart, error)
	ResumeUpload(ctx context.Context, policy *models.Policy, input *models.ResumeUploadInput) (*models.ResumeUploadResult, error)
	CompleteUpload(ctx context.Context, policy *models.Policy, input *models.CompleteUploadInput) (*models.CompleteUploadResult, error)
	AbortUpload(ctx context.Context, policy *models.Policy, input *models.AbortUploadInput) error
	// ExpireStaleUploads aborts sessions whose TTL passed and returns how many it cleaned.
	ExpireStaleUploads(ctx context.Context, now time.Time, limit int) (int, error)
}
