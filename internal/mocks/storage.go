// Package mocks holds in-memory fakes of the service's ports for usecase tests.
package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
)

type session struct {
	bucket, key string
	parts       map[int32]models.UploadedPart
}

// ObjectStore fakes an S3 bucket. Call counters are keyed by method name.
type ObjectStore struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*session
	objects  map[string]bool
	calls    map[string]int

	// FailDelete makes DeleteObject fail for the listed keys.
	FailDelete map[string]bool
}

func NewObjectStore() *ObjectStore {
	return &ObjectStore{
		sessions:   make(map[string]*session),
		objects:    make(map[string]bool),
		calls:      make(map[string]int),
		FailDelete: make(map[string]bool),
	}
}

func (s *ObjectStore) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// PutPart records a part as if the client had PUT it to its presigned URL.
func (s *ObjectStore) PutPart(uploadID string, partNumber int32, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[uploadID]; ok {
		sess.parts[partNumber] = models.UploadedPart{
			PartNumber: partNumber,
			ETag:       fmt.Sprintf("etag-%d", partNumber),
			Size:       size,
			UploadedAt: time.Now(),
		}
	}
}

// PutObject makes an object exist without a multipart session.
func (s *ObjectStore) PutObject(bucket, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = true
}

// ExpireSession drops a multipart session the way a backend lifecycle rule would.
func (s *ObjectStore) ExpireSession(uploadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, uploadID)
}

func (s *ObjectStore) CreateMultipartUpload(_ context.Context, bucket, key, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["CreateMultipartUpload"]++
	s.seq++
	id := fmt.Sprintf("upload-%d", s.seq)
	s.sessions[id] = &session{bucket: bucket, key: key, parts: make(map[int32]models.UploadedPart)}
	return id, nil
}

func (s *ObjectStore) PresignUploadPart(_ context.Context, bucket, key, uploadID string, partNumber int32, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["PresignUploadPart"]++
	return fmt.Sprintf("https://%s.s3.test/%s?partNumber=%d&uploadId=%s&X-Amz-Expires=%d",
		bucket, key, partNumber, uploadID, int(ttl.Seconds())), nil
}

func (s *ObjectStore) ListParts(_ context.Context, _, _, uploadID string) ([]models.UploadedPart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["ListParts"]++
	sess, ok := s.sessions[uploadID]
	if !ok {
		return nil, apperrors.ErrSessionExpired
	}
	parts := make([]models.UploadedPart, 0, len(sess.parts))
	for _, p := range sess.parts {
		parts = append(parts, p)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	return parts, nil
}

func (s *ObjectStore) CompleteMultipartUpload(_ context.Context, bucket, key, uploadID string, parts []models.CompletedPart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["CompleteMultipartUpload"]++
	sess, ok := s.sessions[uploadID]
	if !ok {
		return apperrors.ErrSessionExpired
	}
	for _, p := range parts {
		if _, ok := sess.parts[p.PartNumber]; !ok {
			return apperrors.NewValidation("parts", fmt.Sprintf("part %d was never uploaded", p.PartNumber))
		}
	}
	delete(s.sessions, uploadID)
	s.objects[bucket+"/"+key] = true
	return nil
}

func (s *ObjectStore) AbortMultipartUpload(_ context.Context, _, _, uploadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["AbortMultipartUpload"]++
	delete(s.sessions, uploadID)
	return nil
}

func (s *ObjectStore) ObjectExists(_ context.Context, bucket, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["ObjectExists"]++
	return s.objects[bucket+"/"+key], nil
}

func (s *ObjectStore) ListObjects(_ context.Context, bucket, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["ListObjects"]++
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, bucket+"/"+prefix) {
			keys = append(keys, strings.TrimPrefix(k, bucket+"/"))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *ObjectStore) DeleteObject(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["DeleteObject"]++
	if s.FailDelete[key] {
		return fmt.Errorf("delete %s: access denied", key)
	}
	delete(s.objects, bucket+"/"+key)
	return nil
}

func (s *ObjectStore) PresignGetObject(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["PresignGetObject"]++
	return fmt.Sprintf("https://%s.s3.test/%s?X-Amz-Expires=%d", bucket, key, int(ttl.Seconds())), nil
}

func (s *ObjectStore) ObjectURL(bucket, key string) string {
	return fmt.Sprintf("https://%s.s3.test/%s", bucket, key)
}
