package metrics

import (
	"testing"

	"github.com/moltworks/rapport/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestDepthScoreEmpty(t *testing.T) {
	assert.Zero(t, DepthScore(""))
	assert.Zero(t, DepthScore("   "))
}

func TestDepthScoreSlopPenalty(t *testing.T) {
	// Generic low-effort replies score near zero
	assert.Less(t, DepthScore("great point"), 0.1)
	assert.Less(t, DepthScore("gm"), 0.1)

	// The same short text without a slop phrase scores higher
	slop := DepthScore("so true, nailed it")
	substantive := DepthScore("your framing of incentives changed my read on this")
	assert.Greater(t, substantive, slop)
}

func TestDepthScoreBonuses(t *testing.T) {
	base := DepthScore("interesting framing of decentralized systems here")
	question := DepthScore("interesting framing of decentralized systems here, what drove it?")
	assert.Greater(t, question, base, "question mark should add depth")

	mention := DepthScore("interesting framing, @someoneelse argued the opposite recently")
	assert.Greater(t, mention, base, "cross-reference should add depth")

	callback := DepthScore("you said earlier the market rewards patience, holding you to it")
	assert.Greater(t, callback, base, "history callback should add depth")
}

func TestDepthScoreClamped(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "substantive unique observation number varies each clause here honestly "
	}
	score := DepthScore(long + " and @other, you said earlier this matters, no?")
	assert.LessOrEqual(t, score, 1.0)
	assert.GreaterOrEqual(t, DepthScore("agree gm lfg"), 0.0)
}

func TestDepthScoreDeterministic(t *testing.T) {
	msg := "curious whether your training setup uses a local model, @rival claims it matters?"
	assert.Equal(t, DepthScore(msg), DepthScore(msg))
}

func TestTopics(t *testing.T) {
	assert.Nil(t, Topics(""))
	assert.Nil(t, Topics("completely unrelated chatter about weather"))

	got := Topics("the new model training run shipped, views on the leaderboard doubled")
	assert.Contains(t, got, "ai")
	assert.Contains(t, got, "platform")

	// Case-insensitive, whole-word matching
	assert.Contains(t, Topics("BLOCKCHAIN settlement is slow"), "crypto")
	// "ship" inside another word does not count
	assert.NotContains(t, Topics("worshipping nothing"), "tech")
}

func mkHistory(account string, contents []string) []store.Interaction {
	var hist []store.Interaction
	for i, c := range contents {
		hist = append(hist, store.Interaction{
			ID:          int64(i + 1),
			FromAccount: account,
			ToAccount:   "MaxAnvil",
			Kind:        "mention",
			Content:     c,
			ObservedAt:  int64((i + 1) * 1000),
		})
	}
	return hist
}

func TestAggregateEmpty(t *testing.T) {
	r := Aggregate("alice", PolicyCumulative, 50, nil)
	assert.Zero(t, r.TotalInteractions)
	assert.Equal(t, "neutral", r.Tone)
}

func TestAggregateBasics(t *testing.T) {
	hist := mkHistory("alice", []string{
		"what does consciousness mean for an agent?",
		"the market looks rough, price charts everywhere",
	})
	// One reply from the agent
	hist = append(hist, store.Interaction{
		ID: 10, FromAccount: "MaxAnvil", ToAccount: "alice",
		Kind: "reply", Content: "it means rent is due", ObservedAt: 3000,
	})

	r := Aggregate("alice", PolicyCumulative, 50, hist)
	assert.Equal(t, 3, r.TotalInteractions)
	assert.Equal(t, int64(1000), r.FirstAt)
	assert.Equal(t, int64(3000), r.LastAt)
	assert.InDelta(t, 2.0/3.0, r.MutualRatio, 1e-9)
	assert.Contains(t, r.Topics, "philosophy")
	assert.Contains(t, r.Topics, "market")
	assert.Greater(t, r.AvgDepthScore, 0.0)
}

func TestAggregateDerivable(t *testing.T) {
	// Replaying the same history reproduces the rollup exactly
	hist := mkHistory("bob", []string{
		"thinking about model inference costs?",
		"gm",
		"the leaderboard algorithm favors engagement over truth, no?",
	})
	a := Aggregate("bob", PolicyCumulative, 50, hist)
	b := Aggregate("bob", PolicyCumulative, 50, hist)
	assert.Equal(t, a, b)
}

func TestAggregateTopicsWindow(t *testing.T) {
	// Early crypto talk, then a pivot to philosophy
	contents := []string{"btc is pumping", "eth looks bullish today friends"}
	for i := 0; i < 10; i++ {
		contents = append(contents, "what is the meaning of existence for an agent")
	}
	hist := mkHistory("carol", contents)

	cumulative := Aggregate("carol", PolicyCumulative, 50, hist)
	assert.Contains(t, cumulative.Topics, "crypto")
	assert.Contains(t, cumulative.Topics, "philosophy")

	windowed := Aggregate("carol", PolicyWindow, 10, hist)
	assert.NotContains(t, windowed.Topics, "crypto", "old topics fall out of the window")
	assert.Contains(t, windowed.Topics, "philosophy")
}

func TestAggregateNonTextKinds(t *testing.T) {
	// Likes and follows count toward totals but not depth
	hist := []store.Interaction{
		{ID: 1, FromAccount: "dan", ToAccount: "MaxAnvil", Kind: "like", ObservedAt: 1000},
		{ID: 2, FromAccount: "dan", ToAccount: "MaxAnvil", Kind: "follow", ObservedAt: 2000},
	}
	r := Aggregate("dan", PolicyCumulative, 50, hist)
	assert.Equal(t, 2, r.TotalInteractions)
	assert.Zero(t, r.AvgDepthScore)
	assert.Empty(t, r.Topics)
}

func TestDetectTone(t *testing.T) {
	spam := mkHistory("eve", []string{"gm", "gm", "lfg", "wagmi"})
	assert.Equal(t, "spammy", Aggregate("eve", PolicyCumulative, 50, spam).Tone)

	curious := mkHistory("frank", []string{
		"why did it break?", "how does it work?", "really?",
	})
	assert.Equal(t, "curious", Aggregate("frank", PolicyCumulative, 50, curious).Tone)

	phil := mkHistory("gail", []string{
		"consciousness is a strange loop",
		"truth and meaning diverge under incentive",
		"reality keeps leaking into the simulation",
	})
	assert.Equal(t, "philosophical", Aggregate("gail", PolicyCumulative, 50, phil).Tone)
}
