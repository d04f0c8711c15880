package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		points int
		want   Tier
	}{
		{0, TierNovice},
		{50, TierNovice},
		{51, TierContributor},
		{100, TierContributor},
		{101, TierRegular},
		{500, TierRegular},
		{501, TierExpert},
		{1000, TierExpert},
		{1001, TierMaster},
		{250000, TierMaster},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.points), "points=%d", tt.points)
	}
}
