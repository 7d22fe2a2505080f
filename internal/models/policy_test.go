package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRecommendTreatsZeroLimitAsUnlimited(t *testing.T) {
	free := TierLimit{Name: "free", Rank: 1, Priority: 4, MaxUploadBytes: 100 << 20, MaxDurationSecs: 600}
	pro := TierLimit{Name: "pro", Rank: 2, Priority: 2, MaxUploadBytes: 2 << 30, MaxDurationSecs: 3600}
	studio := TierLimit{Name: "studio", Rank: 3, Priority: 1}
	p := NewPolicy(uuid.New(), free, []TierLimit{studio, free, pro})

	assert.Equal(t, "pro", p.RecommendForSize(1<<30))
	assert.Equal(t, "studio", p.RecommendForSize(50<<30))
	assert.Equal(t, "pro", p.RecommendForDuration(1800))
	assert.Equal(t, "studio", p.RecommendForDuration(7200))

	top := NewPolicy(uuid.New(), studio, []TierLimit{free, pro, studio})
	assert.Empty(t, top.RecommendForSize(50<<30))
	assert.Equal(t, DefaultPriority, (*Policy)(nil).Priority())
}
