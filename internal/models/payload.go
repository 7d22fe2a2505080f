package models

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/amankumarsingh77/clipflow/internal/lifecycle"
	"github.com/google/uuid"
)

const payloadVersion = 1

// Payload is the closed set of job payloads, one variant per operation type.
type Payload interface {
	Operation() OperationType
	EntityID() uuid.UUID
	// Accept routes the payload to the matching PayloadHandler method.
	Accept(ctx context.Context, job *JobSnapshot, h PayloadHandler) error
	sealed()
}

// PayloadHandler must handle every operation; adding a variant breaks every
// implementation until it is handled.
type PayloadHandler interface {
	HandleProbe(ctx context.Context, job *JobSnapshot, p *ProbePayload) error
	HandleDownload(ctx context.Context, job *JobSnapshot, p *DownloadPayload) error
	HandleTranscribe(ctx context.Context, job *JobSnapshot, p *TranscribePayload) error
	HandleAnalyze(ctx context.Context, job *JobSnapshot, p *AnalyzePayload) error
	HandleGenerateClip(ctx context.Context, job *JobSnapshot, p *GenerateClipPayload) error
	HandleCrop(ctx context.Context, job *JobSnapshot, p *CropPayload) error
	HandleExport(ctx context.Context, job *JobSnapshot, p *ExportPayload) error
}

type ProbePayload struct {
	VideoID    uuid.UUID            `json:"video_id"`
	SourceType lifecycle.SourceType `json:"source_type"`
	SourceURL  string               `json:"source_url,omitempty"`
	Bucket     string               `json:"bucket,omitempty"`
	StorageKey string               `json:"storage_key,omitempty"`
}

type DownloadPayload struct {
	VideoID    uuid.UUID            `json:"video_id"`
	SourceType lifecycle.SourceType `json:"source_type"`
	SourceURL  string               `json:"source_url,omitempty"`
	Bucket     string               `json:"bucket,omitempty"`
	StorageKey string               `json:"storage_key,omitempty"`
	OutputKey  string               `json:"output_key"`
}

type TranscribePayload struct {
	VideoID   uuid.UUID `json:"video_id"`
	MediaKey  string    `json:"media_key"`
	OutputKey string    `json:"output_key"`
	Language  string    `json:"language,omitempty"`
}

type AnalyzePayload struct {
	VideoID        uuid.UUID `json:"video_id"`
	MediaKey       string    `json:"media_key"`
	TranscriptKey  string    `json:"transcript_key"`
	MaxClips       int       `json:"max_clips"`
	MinClipSeconds int       `json:"min_clip_seconds"`
	MaxClipSeconds int       `json:"max_clip_seconds"`
}

type GenerateClipPayload struct {
	ClipID    uuid.UUID `json:"clip_id"`
	VideoID   uuid.UUID `json:"video_id"`
	MediaKey  string    `json:"media_key"`
	StartSec  float64   `json:"start_sec"`
	EndSec    float64   `json:"end_sec"`
	OutputKey string    `json:"output_key"`
}

type CropPayload struct {
	ClipID      uuid.UUID `json:"clip_id"`
	SourceKey   string    `json:"source_key"`
	OutputKey   string    `json:"output_key"`
	AspectRatio string    `json:"aspect_ratio,omitempty"`
	Mode        string    `json:"mode,omitempty"`
}

type ExportPayload struct {
	ClipID    uuid.UUID `json:"clip_id"`
	SourceKey string    `json:"source_key"`
	OutputKey string    `json:"output_key"`
	Format    string    `json:"format"`
	Sequence  int       `json:"sequence"`
}

func (*ProbePayload) Operation() OperationType        { return OpProbe }
func (*DownloadPayload) Operation() OperationType     { return OpDownload }
func (*TranscribePayload) Operation() OperationType   { return OpTranscribe }
func (*AnalyzePayload) Operation() OperationType      { return OpAnalyze }
func (*GenerateClipPayload) Operation() OperationType { return OpGenerateClip }
func (*CropPayload) Operation() OperationType         { return OpCrop }
func (*ExportPayload) Operation() OperationType       { return OpExport }

func (p *ProbePayload) EntityID() uuid.UUID        { return p.VideoID }
func (p *DownloadPayload) EntityID() uuid.UUID     { return p.VideoID }
func (p *TranscribePayload) EntityID() uuid.UUID   { return p.VideoID }
func (p *AnalyzePayload) EntityID() uuid.UUID      { return p.VideoID }
func (p *GenerateClipPayload) EntityID() uuid.UUID { return p.ClipID }
func (p *CropPayload) EntityID() uuid.UUID         { return p.ClipID }
func (p *ExportPayload) EntityID() uuid.UUID       { return p.ClipID }

func (p *ProbePayload) Accept(ctx context.Context, j *JobSnapshot, h PayloadHandler) error {
	return h.HandleProbe(ctx, j, p)
}

func (p *DownloadPayload) Accept(ctx context.Context, j *JobSnapshot, h PayloadHandler) error {
	return h.HandleDownload(ctx, j, p)
}

func (p *TranscribePayload) Accept(ctx context.Context, j *JobSnapshot, h PayloadHandler) error {
	return h.HandleTranscribe(ctx, j, p)
}

func (p *AnalyzePayload) Accept(ctx context.Context, j *JobSnapshot, h PayloadHandler) error {
	return h.HandleAnalyze(ctx, j, p)
}

func (p *GenerateClipPayload) Accept(ctx context.Context, j *JobSnapshot, h PayloadHandler) error {
	return h.HandleGenerateClip(ctx, j, p)
}

func (p *CropPayload) Accept(ctx context.Context, j *JobSnapshot, h PayloadHandler) error {
	return h.HandleCrop(ctx, j, p)
}

func (p *ExportPayload) Accept(ctx context.Context, j *JobSnapshot, h PayloadHandler) error {
	return h.HandleExport(ctx, j, p)
}

func (*ProbePayload) sealed()        {}
func (*DownloadPayload) sealed()     {}
func (*TranscribePayload) sealed()   {}
func (*AnalyzePayload) sealed()      {}
func (*GenerateClipPayload) sealed() {}
func (*CropPayload) sealed()         {}
func (*ExportPayload) sealed()       {}

// UnknownOperationError is returned when a stored payload names an operation this
// build does not know.
type UnknownOperationError struct {
	Operation OperationType
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown job operation %q", e.Operation)
}

type envelope struct {
	Operation OperationType   `json:"op"`
	Version   int             `json:"v"`
	Data      json.RawMessage `json:"data"`
}

func EncodePayload(p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", p.Operation(), err)
	}
	return json.Marshal(envelope{Operation: p.Operation(), Version: payloadVersion, Data: data})
}

// DecodePayload is the only way a worker turns stored bytes back into a payload.
func DecodePayload(raw []byte) (Payload, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode payload envelope: %w", err)
	}

	var p Payload
	switch env.Operation {
	case OpProbe:
		p = &ProbePayload{}
	case OpDownload:
		p = &DownloadPayload{}
	case OpTranscribe:
		p = &TranscribePayload{}
	case OpAnalyze:
		p = &AnalyzePayload{}
	case OpGenerateClip:
		p = &GenerateClipPayload{}
	case OpCrop:
		p = &CropPayload{}
	case OpExport:
		p = &ExportPayload{}
	default:
		return nil, &UnknownOperationError{Operation: env.Operation}
	}
	if err := json.Unmarshal(env.Data, p); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", env.Operation, err)
	}
	if p.EntityID() == uuid.Nil {
		return nil, fmt.Errorf("%s payload has no entity id", env.Operation)
	}
	return p, nil
}
