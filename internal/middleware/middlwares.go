package middleware

import (
	"sort"

	"github.com/amankumarsingh77/clipflow/internal/config"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
)

type MiddlewareManager struct {
	cfg     *config.Config
	origins []string
	ladder  []models.TierLimit
	logger  logger.Logger
}

// Middleware manager constructor
func NewMiddlewareManager(cfg *config.Config, origins []string, logger logger.Logger) *MiddlewareManager {
	return &MiddlewareManager{cfg: cfg, origins: origins, ladder: TierLadder(cfg), logger: logger}
}

// TierLadder turns the configured plans into the ordered list policies recommend from.
func TierLadder(cfg *config.Config) []models.TierLimit {
	ladder := make([]models.TierLimit, 0, len(cfg.Tiers))
	for name, t := range cfg.Tiers {
		ladder = append(ladder, models.TierLimit{
			Name:            name,
			Rank:            t.Rank,
			Priority:        t.Priority,
			MaxUploadBytes:  t.MaxUploadBytes,
			MaxDurationSecs: t.MaxDurationSecs,
		})
	}
	sort.Slice(ladder, func(i, j int) bool { return ladder[i].Rank < ladder[j].Rank })
	return ladder
}
