package tier

import (
	"testing"

	"github.com/moltworks/rapport/internal/metrics"
	"github.com/stretchr/testify/assert"
)

func rollup(total int, depth float64) metrics.Rollup {
	return metrics.Rollup{TotalInteractions: total, AvgDepthScore: depth}
}

func TestClassifyThresholds(t *testing.T) {
	cases := []struct {
		name  string
		total int
		depth float64
		want  Tier
	}{
		{"no history", 0, 0, Stranger},
		{"two interactions", 2, 0.9, Stranger},
		{"third interaction promotes", 3, 0.0, Acquaintance},
		{"nine interactions", 9, 0.9, Acquaintance},
		{"ten promotes to known", 10, 0.0, Known},
		{"twenty-four stays known", 24, 0.9, Known},
		{"twenty-five but shallow", 25, 0.59, Known},
		{"twenty-five and deep", 25, 0.6, FriendRival},
		{"high volume high depth", 200, 0.95, FriendRival},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(Stranger, ClassQuality, rollup(tc.total, tc.depth))
			assert.Equal(t, tc.want, got.Tier)
			assert.NotEmpty(t, got.Reason)
		})
	}
}

func TestClassifyHardCap(t *testing.T) {
	// Engagement farming never earns trust tiers
	for _, class := range []Classification{ClassBot, ClassSpammer} {
		got := Classify(Stranger, class, rollup(50, 0.9))
		assert.Equal(t, Acquaintance, got.Tier, "%s must cap at tier 1", class)

		got = Classify(Stranger, class, rollup(2, 0.9))
		assert.Equal(t, Stranger, got.Tier)
	}
}

func TestClassifyPinnedInnerCircle(t *testing.T) {
	// Tier 4 is manual only: the classifier never demotes it, even with
	// no supporting metrics, and never promotes into it.
	got := Classify(InnerCircle, ClassInnerCircle, rollup(0, 0))
	assert.Equal(t, InnerCircle, got.Tier)

	got = Classify(Known, ClassQuality, rollup(1000, 1.0))
	assert.Equal(t, FriendRival, got.Tier, "classifier must not promote into tier 4")
}

func TestClassifyRelabelJumpsTiers(t *testing.T) {
	// A spammer with heavy history sits at 1; relabeling to quality
	// re-evaluates from scratch and can jump several tiers at once.
	m := rollup(40, 0.8)
	capped := Classify(Acquaintance, ClassSpammer, m)
	assert.Equal(t, Acquaintance, capped.Tier)

	relabeled := Classify(capped.Tier, ClassQuality, m)
	assert.Equal(t, FriendRival, relabeled.Tier)
}

func TestClassifyMonotonic(t *testing.T) {
	// For a fixed classification, growing metrics never lower the tier.
	prev := Stranger
	for total := 0; total <= 60; total++ {
		depth := float64(total) / 60
		got := Classify(Stranger, ClassQuality, rollup(total, depth))
		assert.GreaterOrEqual(t, int(got.Tier), int(prev), "tier dropped at total=%d", total)
		prev = got.Tier
	}
}

func TestDemote(t *testing.T) {
	assert.Equal(t, Known, Demote(FriendRival, ClassQuality))
	assert.Equal(t, Stranger, Demote(Acquaintance, ClassQuality))

	// Floors still hold during decay arithmetic
	assert.Equal(t, InnerCircle, Demote(InnerCircle, ClassInnerCircle))
	assert.Equal(t, Stranger, Demote(Stranger, ClassStranger))
	assert.Equal(t, Acquaintance, Demote(FriendRival, ClassBot))
}

func TestDecayTable(t *testing.T) {
	assert.Equal(t, 30, Decay(InnerCircle).FlagDays)
	assert.Zero(t, Decay(InnerCircle).DemoteDays, "inner circle never demotes")
	assert.Equal(t, DecayThresholds{FlagDays: 7, DemoteDays: 21}, Decay(Known))
	assert.Zero(t, Decay(Stranger).FlagDays, "strangers have nothing to lose")
}

func TestParseClassification(t *testing.T) {
	c, err := ParseClassification("quality")
	assert.NoError(t, err)
	assert.Equal(t, ClassQuality, c)

	_, err = ParseClassification("friendly")
	assert.Error(t, err)
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "Friend/Rival", FriendRival.String())
	assert.Equal(t, "Stranger", Stranger.String())
	assert.True(t, InnerCircle.Valid())
	assert.False(t, Tier(5).Valid())
}
