package metrics

import (
	"sort"
	"strings"

	"github.com/moltworks/rapport/internal/store"
)

// TopicsPolicy selects how the profile topic set is derived from history.
type TopicsPolicy string

const (
	// PolicyCumulative unions topics over the account's entire history.
	PolicyCumulative TopicsPolicy = "cumulative"
	// PolicyWindow only considers the most recent window of interactions,
	// so long-lived accounts reflect what they talk about now.
	PolicyWindow TopicsPolicy = "window"
)

// Rollup is the aggregated quantitative view of one account's history.
// It is a pure function of the interaction slice: replaying the same
// history always reproduces the same rollup.
type Rollup struct {
	TotalInteractions int
	FirstAt           int64 // unix millis, 0 if no history
	LastAt            int64
	AvgDepthScore     float64
	Topics            []string
	MutualRatio       float64 // share of interactions the other account initiated
	Tone              string
}

// Aggregate computes the rollup for the account from its interaction
// history. history must be ordered by observed_at ascending (the store
// guarantees this).
func Aggregate(account string, policy TopicsPolicy, window int, history []store.Interaction) Rollup {
	r := Rollup{Tone: "neutral"}
	if len(history) == 0 {
		return r
	}

	r.TotalInteractions = len(history)
	r.FirstAt = history[0].ObservedAt
	r.LastAt = history[len(history)-1].ObservedAt

	// Depth is measured on what they send, not on what the agent replies.
	var depthSum float64
	var inbound int
	initiated := 0
	for _, in := range history {
		if in.FromAccount != account {
			continue
		}
		initiated++
		if isTextKind(in.Kind) {
			depthSum += DepthScore(in.Content)
			inbound++
		}
	}
	if inbound > 0 {
		r.AvgDepthScore = depthSum / float64(inbound)
	}
	r.MutualRatio = float64(initiated) / float64(len(history))

	topicSource := history
	if policy == PolicyWindow && window > 0 && len(history) > window {
		topicSource = history[len(history)-window:]
	}
	r.Topics = topicUnion(account, topicSource)
	r.Tone = detectTone(account, history)

	return r
}

// topicUnion collects topics across the account's inbound messages.
func topicUnion(account string, history []store.Interaction) []string {
	seen := make(map[string]bool)
	for _, in := range history {
		if in.FromAccount != account || in.Content == "" {
			continue
		}
		for _, t := range Topics(in.Content) {
			seen[t] = true
		}
	}
	if len(seen) == 0 {
		return nil
	}

	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// detectTone picks a coarse tone label from inbound message patterns.
// A heuristic stand-in for per-message sentiment classification; good
// enough for the context assembler's one-word tone line.
func detectTone(account string, history []store.Interaction) string {
	var total, questions, exclaims, sloppy int
	topicHits := make(map[string]int)

	for _, in := range history {
		if in.FromAccount != account || !isTextKind(in.Kind) {
			continue
		}
		content := strings.TrimSpace(in.Content)
		if content == "" {
			continue
		}
		total++
		if strings.Contains(content, "?") {
			questions++
		}
		if strings.Contains(content, "!") {
			exclaims++
		}
		if slopScanner.any(content) {
			sloppy++
		}
		for _, t := range Topics(content) {
			topicHits[t]++
		}
	}

	if total == 0 {
		return "neutral"
	}

	switch {
	case sloppy*2 > total:
		return "spammy"
	case topicHits["humor"]*3 >= total && topicHits["humor"] > 0:
		return "humorous"
	case topicHits["philosophy"]*3 >= total && topicHits["philosophy"] > 0:
		return "philosophical"
	case questions*2 >= total:
		return "curious"
	case exclaims*2 >= total:
		return "enthusiastic"
	default:
		return "neutral"
	}
}

// isTextKind reports whether an interaction kind carries message text.
// Likes and follows contribute to counts and recency but not to depth.
func isTextKind(kind string) bool {
	switch kind {
	case "mention", "reply", "quote":
		return true
	default:
		return false
	}
}
