package main

import (
	"strings"
	"testing"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobRowShowsDelayAndCancel(t *testing.T) {
	now := time.Now()
	id := uuid.New()
	snap := &models.JobSnapshot{
		JobHandle: models.JobHandle{
			Key:      models.JobKey(models.OpExport, id),
			State:    models.JobDelayed,
			Priority: 2,
			ReadyAt:  now.Add(2 * time.Hour),
		},
		Progress:        12.4,
		EnqueuedAt:      now.Add(-time.Minute),
		CancelRequested: true,
	}

	row := jobRow(snap, now)
	require.Len(t, row, 9)
	assert.Equal(t, "export:"+id.String(), row[0])
	assert.Equal(t, "12%", row[3])
	assert.Contains(t, row[6], "from now")
	assert.Equal(t, "requested", row[7])
}

func TestRenderTableAlignsColumns(t *testing.T) {
	out := renderTable([]string{"Key", "Priority"}, [][]string{{"probe:x", "1"}, {"crop:y"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "probe:x")
	assert.Contains(t, out, "crop:y")
	assert.True(t, strings.HasPrefix(out, "╭"))
}

func TestParseIDsAndOperations(t *testing.T) {
	_, err := parseIDs([]string{uuid.NewString(), "nope"})
	assert.Error(t, err)
	assert.True(t, isOperation(models.OpGenerateClip))
	assert.False(t, isOperation("transcode"))
}
