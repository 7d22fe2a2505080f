package models

import (
	"time"

	"github.com/google/uuid"
)

type InitUploadInput struct {
	FileName    string `json:"filename" validate:"required,lte=255"`
	SizeBytes   int64  `json:"size_bytes" validate:"required,gt=0"`
	ContentType string `json:"content_type" validate:"required,lte=100"`
	Title       string `json:"title" validate:"omitempty,lte=255"`
}

type PartURL struct {
	PartNumber int32     `json:"part_number"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type InitUploadResult struct {
	VideoID    uuid.UUID `json:"video_id"`
	SessionID  string    `json:"session_id"`
	StorageKey string    `json:"storage_key"`
	ChunkSize  int64     `json:"chunk_size"`
	TotalParts int       `json:"total_parts"`
	PartURLs   []PartURL `json:"part_urls"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type PartURLInput struct {
	SessionID  string `json:"session_id" validate:"required"`
	StorageKey string `json:"storage_key" validate:"required"`
	PartNumber int32  `json:"part_number" validate:"required,gte=1,lte=10000"`
}

type BatchPartURLInput struct {
	SessionID   string  `json:"session_id" validate:"required"`
	StorageKey  string  `json:"storage_key" validate:"required"`
	PartNumbers []int32 `json:"part_numbers" validate:"required,min=1,dive,gte=1,lte=10000"`
}

// UploadedPart is the storage backend's record of a part that landed.
type UploadedPart struct {
	PartNumber int32     `json:"part_number"`
	ETag       string    `json:"etag"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at,omitempty"`
}

type ResumeUploadInput struct {
	SessionID  string `json:"session_id" validate:"required"`
	StorageKey string `json:"storage_key" validate:"required"`
	TotalParts int    `json:"total_parts" validate:"required,gte=1,lte=10000"`
}

type ResumeUploadResult struct {
	SessionID      string         `json:"session_id"`
	StorageKey     string         `json:"storage_key"`
	UploadedParts  []UploadedPart `json:"uploaded_parts"`
	RemainingParts []int32        `json:"remaining_parts"`
	PartURLs       []PartURL      `json:"part_urls"`
	IsComplete     bool           `json:"is_complete"`
}

type CompletedPart struct {
	PartNumber     int32  `json:"part_number" validate:"required,gte=1,lte=10000"`
	ETag           string `json:"etag" validate:"required"`
	ChecksumSHA256 string `json:"checksum_sha256,omitempty"`
}

type CompleteUploadInput struct {
	SessionID  string          `json:"session_id" validate:"required"`
	StorageKey string          `json:"storage_key" validate:"required"`
	Parts      []CompletedPart `json:"parts" validate:"required,min=1,dive"`
}

type CompleteUploadResult struct {
	VideoID    uuid.UUID  `json:"video_id"`
	StorageKey string     `json:"storage_key"`
	StorageURL string     `json:"storage_url"`
	Status     string     `json:"status"`
	NextJob    *JobHandle `json:"next_job,omitempty"`
	// AlreadyCompleted is set when a repeated complete found the upload finalized.
	AlreadyCompleted bool `json:"already_completed"`
}

type AbortUploadInput struct {
	SessionID  string `json:"session_id" validate:"required"`
	StorageKey string `json:"storage_key" validate:"required"`
}
