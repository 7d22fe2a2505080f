package models

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Blob is an object in a specific bucket.
type Blob struct {
	Bucket string
	Key    string
}

func UploadKey(userID, videoID uuid.UUID, fileName string) string {
	return fmt.Sprintf("uploads/%s/%s/%s", userID, videoID, sanitizeFileName(fileName))
}

// DerivedPrefix holds every artifact the pipeline writes for a video.
func DerivedPrefix(videoID uuid.UUID) string { return fmt.Sprintf("derived/%s/", videoID) }

// ClipPrefix holds the rendered clip, sub-operation results and exports.
func ClipPrefix(clipID uuid.UUID) string { return fmt.Sprintf("clips/%s/", clipID) }

func MediaKey(videoID uuid.UUID) string {
	return fmt.Sprintf("derived/%s/source.mp4", videoID)
}

func TranscriptKey(videoID uuid.UUID) string {
	return fmt.Sprintf("derived/%s/transcript.json", videoID)
}

func ClipKey(clipID uuid.UUID) string {
	return fmt.Sprintf("clips/%s/clip.mp4", clipID)
}

func OperationResultKey(clipID uuid.UUID, op OperationType) string {
	return fmt.Sprintf("clips/%s/%s.json", clipID, op)
}

func ExportKey(clipID uuid.UUID, n int, format string) string {
	if format == "" {
		format = "mp4"
	}
	return fmt.Sprintf("clips/%s/exports/%04d.%s", clipID, n, format)
}

func sanitizeFileName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "video"
	}
	return out
}
