package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrSessionExpired means the storage backend no longer knows the upload session.
	// Clients must restart with a fresh init instead of retrying resume.
	ErrSessionExpired = errors.New("upload session expired")
	ErrTooManyParts   = &ValidationError{Field: "size_bytes", Reason: "upload would need more parts than the storage backend allows"}
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	// ErrConflict marks requests that collide with work already in progress.
	ErrConflict = errors.New("conflict")
)

type ValidationError struct {
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

type QuotaReason string

const (
	QuotaFileSize QuotaReason = "file_size_limit"
	QuotaDuration QuotaReason = "duration_limit"
)

// QuotaExceededError carries enough structure for the caller to render an upgrade prompt.
type QuotaExceededError struct {
	Reason          QuotaReason `json:"reason"`
	CurrentTier     string      `json:"current_tier"`
	RecommendedTier string      `json:"recommended_tier,omitempty"`
	Limit           int64       `json:"limit"`
	Attempted       int64       `json:"attempted"`
}

func (e *QuotaExceededError) Error() string {
	if e.Reason == QuotaFileSize {
		return fmt.Sprintf("quota exceeded: %s upload exceeds the %s limit of the %s plan",
			humanize.Bytes(uint64(e.Attempted)), humanize.Bytes(uint64(e.Limit)), e.CurrentTier)
	}
	return fmt.Sprintf("quota exceeded: %s %d exceeds limit %d on the %s plan", e.Reason, e.Attempted, e.Limit, e.CurrentTier)
}

type Upstream string

const (
	UpstreamStorage Upstream = "storage"
	UpstreamQueue   Upstream = "queue"
)

// UpstreamError wraps a failure of the object store or the queue backend.
type UpstreamError struct {
	Service Upstream
	Op      string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s error during %s: %v", e.Service, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Service: UpstreamStorage, Op: op, Err: err}
}

func Queue(op string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Service: UpstreamQueue, Op: op, Err: err}
}

// StatusCoder lets errors defined in other packages pick their HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

func HTTPStatus(err error) int {
	var (
		validation *ValidationError
		quota      *QuotaExceededError
		upstream   *UpstreamError
		coder      StatusCoder
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &quota):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrSessionExpired):
		return http.StatusGone
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.As(err, &upstream):
		if upstream.Service == UpstreamQueue {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	case errors.As(err, &coder):
		return coder.HTTPStatus()
	default:
		return http.StatusInternalServerError
	}
}

// Body renders err as a JSON-friendly map for the delivery layer.
func Body(err error) map[string]interface{} {
	body := map[string]interface{}{"error": err.Error()}
	var (
		validation *ValidationError
		quota      *QuotaExceededError
	)
	switch {
	case errors.As(err, &quota):
		body["code"] = "quota_exceeded"
		body["upgrade"] = quota
	case errors.As(err, &validation):
		body["code"] = "validation_error"
		body["field"] = validation.Field
	case errors.Is(err, ErrSessionExpired):
		body["code"] = "session_expired"
	case errors.Is(err, ErrNotFound):
		body["code"] = "not_found"
	case errors.Is(err, ErrConflict):
		body["code"] = "conflict"
	}
	return body
}
