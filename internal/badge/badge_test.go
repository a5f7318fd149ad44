package badge

import (
	"testing"

	"engagement-engine/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestTierFor(t *testing.T) {
	cases := map[int]models.BadgeTier{
		0:   models.BadgeBronze,
		4:   models.BadgeBronze,
		5:   models.BadgeSilver,
		14:  models.BadgeSilver,
		15:  models.BadgeGold,
		100: models.BadgeGold,
	}
	for count, want := range cases {
		assert.Equal(t, want, TierFor(count), "count=%d", count)
	}
}
