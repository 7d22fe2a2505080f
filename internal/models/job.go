package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type OperationType string

const (
	OpProbe        OperationType = "probe"
	OpDownload     OperationType = "download"
	OpTranscribe   OperationType = "transcribe"
	OpAnalyze      OperationType = "analyze"
	OpGenerateClip OperationType = "generate_clip"
	OpCrop         OperationType = "crop"
	OpExport       OperationType = "export"
)

// VideoOperations run against a video id, ClipOperations against a clip id.
var (
	VideoOperations = []OperationType{OpProbe, OpDownload, OpTranscribe, OpAnalyze}
	ClipOperations  = []OperationType{OpGenerateClip, OpCrop, OpExport}
)

// SubOperations are the clip passes a caller may trigger by name.
var SubOperations = map[OperationType]bool{OpCrop: true, OpExport: true}

const (
	HighestPriority = 1
	DefaultPriority = 4
)

// JobKey is the deduplication key of a unit of work.
func JobKey(op OperationType, entityID uuid.UUID) string {
	return string(op) + ":" + entityID.String()
}

func ParseJobKey(key string) (OperationType, uuid.UUID, error) {
	op, id, ok := strings.Cut(key, ":")
	if !ok {
		return "", uuid.Nil, fmt.Errorf("malformed job key %q", key)
	}
	entityID, err := uuid.Parse(id)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("malformed job key %q: %w", key, err)
	}
	return OperationType(op), entityID, nil
}

type JobState string

const (
	JobWaiting   JobState = "waiting"
	JobDelayed   JobState = "delayed"
	JobActive    JobState = "active"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// Live reports whether a job in s still occupies its key.
func (s JobState) Live() bool {
	return s == JobWaiting || s == JobDelayed || s == JobActive
}

// JobHandle identifies a queued unit of work to callers.
type JobHandle struct {
	ID        string        `json:"id"`
	Key       string        `json:"key"`
	Operation OperationType `json:"operation"`
	EntityID  uuid.UUID     `json:"entity_id"`
	State     JobState      `json:"state"`
	Priority  int           `json:"priority"`
	ReadyAt   time.Time     `json:"ready_at"`
	// Created is false when the call converged on an already live job.
	Created bool `json:"created"`
}

// JobSnapshot is the full queue-side view of a job.
type JobSnapshot struct {
	JobHandle
	Progress        float64    `json:"progress"`
	Attempts        int        `json:"attempts"`
	EnqueuedAt      time.Time  `json:"enqueued_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Error           string     `json:"error,omitempty"`
	CancelRequested bool       `json:"cancel_requested"`
	Payload         []byte     `json:"-"`
}

// Claim fences a worker to one lease of a job. Attempt is the claim counter at
// lease time; a re-claim after expiry bumps it and the older holder is cut off.
type Claim struct {
	Key     string
	ID      string
	Attempt int
}

func (s *JobSnapshot) Claim() Claim {
	return Claim{Key: s.Key, ID: s.ID, Attempt: s.Attempts}
}

type RemoveOutcome string

const (
	// RemovedQueued means a waiting or delayed job was deleted before it ran.
	RemovedQueued RemoveOutcome = "removed"
	// RemoveFlaggedActive means the job is running; it was flagged for cooperative
	// cancellation and may still finish.
	RemoveFlaggedActive RemoveOutcome = "active"
	RemoveAbsent        RemoveOutcome = "absent"
)

// NewJob is what the dispatcher hands to the queue backend.
type NewJob struct {
	ID        string
	Key       string
	Operation OperationType
	EntityID  uuid.UUID
	Payload   []byte
	Priority  int
	Delay     time.Duration
}
