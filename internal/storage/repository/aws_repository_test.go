package repository

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listPartsBody = `<?xml version="1.0" encoding="UTF-8"?>
<ListPartsResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Bucket>input</Bucket>
  <Key>uploads/a.mp4</Key>
  <UploadId>up-1</UploadId>
  <IsTruncated>false</IsTruncated>
  <Part><PartNumber>4</PartNumber><ETag>"e4"</ETag><Size>5</Size><LastModified>2025-01-01T00:00:00.000Z</LastModified></Part>
  <Part><PartNumber>1</PartNumber><ETag>"e1"</ETag><Size>5</Size><LastModified>2025-01-01T00:00:00.000Z</LastModified></Part>
</ListPartsResult>`

const noSuchUploadBody = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchUpload</Code><Message>The specified upload does not exist.</Message></Error>`

func newTestRepo(t *testing.T, h http.HandlerFunc) *awsRepository {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("key", "secret", ""),
		Retryer:      aws.NopRetryer{},
	})
	return NewAwsRepository(client, s3.NewPresignClient(client), "https://cdn.example.com/").(*awsRepository)
}

func TestListPartsSortsBackendRecord(t *testing.T) {
	repo := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "up-1", r.URL.Query().Get("uploadId"))
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(listPartsBody))
	})

	parts, err := repo.ListParts(context.Background(), "input", "uploads/a.mp4", "up-1")
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.EqualValues(t, 1, parts[0].PartNumber)
	assert.EqualValues(t, 4, parts[1].PartNumber)
	assert.Equal(t, `"e1"`, parts[0].ETag)
}

func TestListPartsUnknownSessionIsExpired(t *testing.T) {
	repo := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(noSuchUploadBody))
	})

	_, err := repo.ListParts(context.Background(), "input", "uploads/a.mp4", "gone")
	assert.True(t, errors.Is(err, apperrors.ErrSessionExpired))
}

func TestAbortUnknownSessionSucceeds(t *testing.T) {
	calls := 0
	repo := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodDelete, r.Method)
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(noSuchUploadBody))
	})

	require.NoError(t, repo.AbortMultipartUpload(context.Background(), "input", "uploads/a.mp4", "gone"))
	assert.Equal(t, 1, calls)
}

func TestObjectExists(t *testing.T) {
	repo := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/present.mp4") {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	ok, err := repo.ObjectExists(context.Background(), "input", "present.mp4")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ObjectExists(context.Background(), "input", "missing.mp4")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPresignedURLsCarryPartAndExpiry(t *testing.T) {
	repo := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("presigning must not call the backend")
	})

	u, err := repo.PresignUploadPart(context.Background(), "input", "uploads/a.mp4", "up-1", 3, time.Hour)
	require.NoError(t, err)
	assert.Contains(t, u, "partNumber=3")
	assert.Contains(t, u, "uploadId=up-1")
	assert.Contains(t, u, "X-Amz-Expires=3600")

	assert.Equal(t, "https://cdn.example.com/clips/x.mp4", repo.ObjectURL("output", "clips/x.mp4"))
}
