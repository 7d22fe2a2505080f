package models

import (
	"sort"

	"github.com/google/uuid"
)

// TierLimit is one rung of the plan ladder as supplied by the plan/quota service.
type TierLimit struct {
	Name            string `json:"name"`
	Rank            int    `json:"rank"`
	Priority        int    `json:"priority"`
	MaxUploadBytes  int64  `json:"max_upload_bytes"`
	MaxDurationSecs int64  `json:"max_duration_secs"`
}

// Policy is resolved once per request and passed down explicitly.
type Policy struct {
	UserID uuid.UUID
	Tier   TierLimit
	ladder []TierLimit
}

func NewPolicy(userID uuid.UUID, tier TierLimit, ladder []TierLimit) *Policy {
	sorted := append([]TierLimit(nil), ladder...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })
	return &Policy{UserID: userID, Tier: tier, ladder: sorted}
}

// Priority is the queue weight of the caller: 1 is served first.
func (p *Policy) Priority() int {
	if p == nil || p.Tier.Priority < 1 {
		return DefaultPriority
	}
	return p.Tier.Priority
}

// RecommendForSize returns the cheapest tier above the caller's that accepts size bytes.
// A zero limit is unlimited.
func (p *Policy) RecommendForSize(size int64) string {
	for _, t := range p.ladder {
		if t.Rank > p.Tier.Rank && (t.MaxUploadBytes == 0 || t.MaxUploadBytes >= size) {
			return t.Name
		}
	}
	return ""
}

// RecommendForDuration returns the cheapest tier above the caller's that accepts secs.
func (p *Policy) RecommendForDuration(secs int64) string {
	for _, t := range p.ladder {
		if t.Rank > p.Tier.Rank && (t.MaxDurationSecs == 0 || t.MaxDurationSecs >= secs) {
			return t.Name
		}
	}
	return ""
}
