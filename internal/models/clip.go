package models

import (
	"strconv"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/google/uuid"
)

type Clip struct {
	ClipID       uuid.UUID            `json:"clip_id" db:"clip_id"`
	VideoID      uuid.UUID            `json:"video_id" db:"video_id"`
	UserID       uuid.UUID            `json:"user_id" db:"user_id"`
	Title        string               `json:"title" db:"title"`
	Status       lifecycle.ClipStatus `json:"status" db:"status"`
	StartSec     float64              `json:"start_sec" db:"start_sec"`
	EndSec       float64              `json:"end_sec" db:"end_sec"`
	Score        float64              `json:"score" db:"score"`
	StorageKey   *string              `json:"storage_key,omitempty" db:"storage_key"`
	ExportCount  int                  `json:"export_count" db:"export_count"`
	ErrorMessage *string              `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at" db:"updated_at"`
}

// ClipOperation is the persisted state of one sub-operation on a clip.
type ClipOperation struct {
	ClipID       uuid.UUID             `json:"clip_id" db:"clip_id"`
	Operation    OperationType         `json:"operation" db:"operation"`
	Status       lifecycle.SubOpStatus `json:"status" db:"status"`
	JobID        *string               `json:"job_id,omitempty" db:"job_id"`
	ResultKey    *string               `json:"result_key,omitempty" db:"result_key"`
	ErrorMessage *string               `json:"error_message,omitempty" db:"error_message"`
	UpdatedAt    time.Time             `json:"updated_at" db:"updated_at"`
}

type TriggerOperationInput struct {
	AspectRatio string `json:"aspect_ratio,omitempty" validate:"omitempty,oneof=9:16 1:1 16:9 4:5"`
	Mode        string `json:"mode,omitempty" validate:"omitempty,oneof=auto face split center"`
}

// TriggerResult answers a trigger request. Exactly one of Job or ResultURL is set
// unless the operation just failed.
type TriggerResult struct {
	ClipID    uuid.UUID             `json:"clip_id"`
	Operation OperationType         `json:"operation"`
	Status    lifecycle.SubOpStatus `json:"status"`
	Job       *JobHandle            `json:"job,omitempty"`
	ResultKey string                `json:"result_key,omitempty"`
	ResultURL string                `json:"result_url,omitempty"`
	Cached    bool                  `json:"cached"`
}

type ExportInput struct {
	Format string `json:"format" validate:"omitempty,oneof=mp4 mov webm"`
}

type ScheduleExportsInput struct {
	ClipIDs  []uuid.UUID `json:"clip_ids" validate:"required,min=1,max=50"`
	StartAt  time.Time   `json:"start_at" validate:"required"`
	Interval Duration    `json:"interval"`
	Format   string      `json:"format" validate:"omitempty,oneof=mp4 mov webm"`
}

type ScheduledExport struct {
	ClipID      uuid.UUID  `json:"clip_id"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	Job         *JobHandle `json:"job"`
}

// Duration decodes either a Go duration string ("15m") or integer milliseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		parsed, err := time.ParseDuration(string(b[1 : len(b)-1]))
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return err
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// OperationPatch lists the sub-operation columns a transition may set. Nil fields
// are left unchanged except ErrorMessage, which is always overwritten.
type OperationPatch struct {
	JobID        *string
	ResultKey    *string
	ErrorMessage *string
}

type RescheduleExportInput struct {
	At time.Time `json:"at" validate:"required"`
}
