package engine

import (
	"sort"
	"strings"

	"github.com/moltworks/rapport/internal/metrics"
	"github.com/moltworks/rapport/internal/store"
)

// momentQuoteLen caps the stored quote for a memorable moment.
const momentQuoteLen = 200

// SelectMoments scores an account's own messages and keeps the top k as
// memorable moments. Deterministic: no model involved, same history in,
// same moments out. Ties break toward the earliest message.
func SelectMoments(self, account string, history []store.Interaction, k int) []store.Moment {
	selfLower := strings.ToLower(self)

	// Index of the agent's replies, so "did the agent respond" is one pass.
	var replyTimes []int64
	for _, in := range history {
		if in.FromAccount == self && in.ToAccount == account && in.Kind == "reply" {
			replyTimes = append(replyTimes, in.ObservedAt)
		}
	}

	var scored []store.Moment
	for _, in := range history {
		if in.FromAccount != account {
			continue
		}
		content := strings.TrimSpace(in.Content)
		if content == "" {
			continue
		}

		score := 2 * metrics.DepthScore(content)

		lower := strings.ToLower(content)
		if strings.Contains(lower, "@"+selfLower) && strings.Contains(content, "?") {
			score += 1.0
		}

		if shortAndPunchy(content) {
			score += 0.5
		}

		if respondedAfter(replyTimes, in.ObservedAt) {
			score += 0.5
		}

		quote := content
		if len(quote) > momentQuoteLen {
			quote = quote[:momentQuoteLen]
		}
		scored = append(scored, store.Moment{
			InteractionID: in.ID,
			Content:       quote,
			ObservedAt:    in.ObservedAt,
			Score:         score,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ObservedAt < scored[j].ObservedAt
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// shortAndPunchy reports whether a message is quotable: 5-15 words with
// terminal punctuation.
func shortAndPunchy(content string) bool {
	words := len(strings.Fields(content))
	if words < 5 || words > 15 {
		return false
	}
	return strings.ContainsAny(content[len(content)-1:], ".!?")
}

// respondedAfter reports whether the agent replied at any point after the
// message was observed.
func respondedAfter(replyTimes []int64, observedAt int64) bool {
	for _, t := range replyTimes {
		if t > observedAt {
			return true
		}
	}
	return false
}
