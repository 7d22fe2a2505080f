package models

import (
	"time"

	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/google/uuid"
)

// StatusSource tells a polling client which side answered.
type StatusSource string

const (
	SourceEntity StatusSource = "entity"
	SourceQueue  StatusSource = "queue"
)

type VideoStatusView struct {
	VideoID         uuid.UUID             `json:"video_id"`
	Status          lifecycle.VideoStatus `json:"status"`
	PersistedStatus lifecycle.VideoStatus `json:"persisted_status"`
	Progress        float64               `json:"progress"`
	Source          StatusSource          `json:"source"`
	Job             *JobSnapshot          `json:"job,omitempty"`
	ErrorMessage    string                `json:"error_message,omitempty"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

type OperationStatusView struct {
	ClipID          uuid.UUID             `json:"clip_id"`
	Operation       OperationType         `json:"operation"`
	Status          lifecycle.SubOpStatus `json:"status"`
	PersistedStatus lifecycle.SubOpStatus `json:"persisted_status"`
	Progress        float64               `json:"progress"`
	Source          StatusSource          `json:"source"`
	Job             *JobSnapshot          `json:"job,omitempty"`
	ResultKey       string                `json:"result_key,omitempty"`
	ErrorMessage    string                `json:"error_message,omitempty"`
}

type ClipStatusView struct {
	ClipID          uuid.UUID             `json:"clip_id"`
	Status          lifecycle.ClipStatus  `json:"status"`
	PersistedStatus lifecycle.ClipStatus  `json:"persisted_status"`
	Progress        float64               `json:"progress"`
	Source          StatusSource          `json:"source"`
	Job             *JobSnapshot          `json:"job,omitempty"`
	ExportCount     int                   `json:"export_count"`
	Operations      []OperationStatusView `json:"operations"`
}
