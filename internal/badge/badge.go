// Package badge maps endorsement counts to trust tiers.
package badge

import "engagement-engine/internal/models"

const (
	SilverThreshold = 5
	GoldThreshold   = 15
)

func TierFor(count int) models.BadgeTier {
	switch {
	case count >= GoldThreshold:
		return models.BadgeGold
	case count >= SilverThreshold:
		return models.BadgeSilver
	default:
		return models.BadgeBronze
	}
}
