package storage

import (
	"context"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/models"
)

// ObjectStore is the S3 compatible surface the service depends on. Upload bytes
// never pass through it; clients PUT parts to presigned URLs.
type ObjectStore interface {
	CreateMultipartUpload(ctx context.Context, bucket, key, contentType string) (string, error)
	PresignUploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, ttl time.Duration) (string, error)
	// ListParts returns apperrors.ErrSessionExpired when the backend no longer
	// knows uploadID.
	ListParts(ctx context.Context, bucket, key, uploadID string) ([]models.UploadedPart, error)
	// CompleteMultipartUpload returns apperrors.ErrSessionExpired when the
	// backend no longer knows uploadID.
	CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []models.CompletedPart) error
	// AbortMultipartUpload treats an unknown session as already aborted.
	AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error
	ObjectExists(ctx context.Context, bucket, key string) (bool, error)
	// ListObjects returns every key under prefix.
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
	DeleteObject(ctx context.Context, bucket, key string) error
	PresignGetObject(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	ObjectURL(bucket, key string) string
}
