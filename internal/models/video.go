package models

import (
	"encoding/json"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/google/uuid"
)

type Video struct {
	VideoID         uuid.UUID             `json:"video_id" db:"video_id"`
	UserID          uuid.UUID             `json:"user_id" db:"user_id"`
	Title           string                `json:"title" db:"title"`
	Status          lifecycle.VideoStatus `json:"status" db:"status"`
	SourceType      lifecycle.SourceType  `json:"source_type" db:"source_type"`
	SourceURL       *string               `json:"source_url,omitempty" db:"source_url"`
	FileName        string                `json:"file_name" db:"file_name"`
	FileSize        int64                 `json:"file_size" db:"file_size"`
	ContentType     string                `json:"content_type" db:"content_type"`
	UploadID        *string               `json:"-" db:"upload_id"`
	UploadKey       *string               `json:"-" db:"upload_key"`
	TotalParts      int                   `json:"total_parts" db:"total_parts"`
	DurationSecs    *float64              `json:"duration_secs,omitempty" db:"duration_secs"`
	UploadExpiresAt *time.Time            `json:"upload_expires_at,omitempty" db:"upload_expires_at"`
	StorageKey      *string               `json:"storage_key,omitempty" db:"storage_key"`
	StorageURL      *string               `json:"storage_url,omitempty" db:"storage_url"`
	Config          RawJSON               `json:"config,omitempty" db:"config"`
	ErrorMessage    *string               `json:"error_message,omitempty" db:"error_message"`
	CreatedAt       time.Time             `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at" db:"updated_at"`
}

// StageOperation maps an in-progress video status to the job that drives it.
func StageOperation(s lifecycle.VideoStatus) (OperationType, bool) {
	switch s {
	case lifecycle.VideoAwaitingConfig:
		return OpProbe, true
	case lifecycle.VideoDownloading:
		return OpDownload, true
	case lifecycle.VideoTranscribing:
		return OpTranscribe, true
	case lifecycle.VideoAnalyzing:
		return OpAnalyze, true
	default:
		return "", false
	}
}

type ImportVideoInput struct {
	URL   string `json:"url" validate:"required,url,lte=2048"`
	Title string `json:"title" validate:"omitempty,lte=255"`
}

// VideoConfig is what the caller chooses before the pipeline starts.
type VideoConfig struct {
	Language       string `json:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
	MaxClips       int    `json:"max_clips" validate:"omitempty,gte=1,lte=50"`
	MinClipSeconds int    `json:"min_clip_seconds" validate:"omitempty,gte=5,lte=600"`
	MaxClipSeconds int    `json:"max_clip_seconds" validate:"omitempty,gte=5,lte=600"`
	AspectRatio    string `json:"aspect_ratio,omitempty" validate:"omitempty,oneof=9:16 1:1 16:9 4:5"`
}

// DetectedClip is a clip candidate reported by the analysis stage.
type DetectedClip struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Title    string  `json:"title,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

type DeleteResult struct {
	VideoID        uuid.UUID `json:"video_id"`
	JobsRemoved    int       `json:"jobs_removed"`
	BlobsAttempted int       `json:"blobs_attempted"`
	BlobsFailed    int       `json:"blobs_failed"`
}

// ProbeResult is the metadata the probe stage extracts.
type ProbeResult struct {
	DurationSecs float64 `json:"duration_secs"`
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	Codec        string  `json:"codec,omitempty"`
}

// DecodeConfig returns the stored pipeline configuration, or the zero value.
func (v *Video) DecodeConfig() (VideoConfig, error) {
	var cfg VideoConfig
	if len(v.Config) == 0 {
		return cfg, nil
	}
	err := json.Unmarshal(v.Config, &cfg)
	return cfg, err
}

// WithDefaults fills unset knobs.
func (c VideoConfig) WithDefaults() VideoConfig {
	if c.MaxClips == 0 {
		c.MaxClips = 10
	}
	if c.MinClipSeconds == 0 {
		c.MinClipSeconds = 15
	}
	if c.MaxClipSeconds == 0 {
		c.MaxClipSeconds = 60
	}
	if c.AspectRatio == "" {
		c.AspectRatio = "9:16"
	}
	return c
}

// VideoPatch lists the columns a status transition may set alongside status.
// Nil fields are left unchanged.
type VideoPatch struct {
	StorageKey   *string
	StorageURL   *string
	Config       RawJSON
	ErrorMessage *string
}

type ImportVideoResult struct {
	Video *Video     `json:"video"`
	Job   *JobHandle `json:"job,omitempty"`
}

type ConfigureResult struct {
	Video *Video     `json:"video"`
	Job   *JobHandle `json:"job"`
}

type DownloadURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
