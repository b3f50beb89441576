package tier

import (
	"fmt"

	"github.com/moltworks/rapport/internal/metrics"
)

// Promotion thresholds. Evaluated top-down; first match wins.
const (
	friendRivalMinInteractions  = 25
	friendRivalMinDepth         = 0.6
	knownMinInteractions        = 10
	acquaintanceMinInteractions = 3
)

// Result is a classification outcome: the computed tier and the
// human-readable reason naming the rule that fired.
type Result struct {
	Tier   Tier
	Reason string
}

// Classify recomputes the tier from scratch for the given classification
// and metrics rollup. The stored tier is consulted only for the inner
// circle pin: tier 4 is set manually and this function never moves an
// account into or out of it. Tier is a pure function of
// (classification, metrics) everywhere else, so a classification change
// can move an account several tiers in one evaluation.
func Classify(current Tier, class Classification, m metrics.Rollup) Result {
	if current == InnerCircle {
		return Result{InnerCircle, "inner circle is pinned; manual assignment only"}
	}

	if class.Capped() {
		if m.TotalInteractions >= acquaintanceMinInteractions {
			return Result{Acquaintance, fmt.Sprintf("classification %q caps tier at 1", class)}
		}
		return Result{Stranger, fmt.Sprintf("classification %q with %d interactions", class, m.TotalInteractions)}
	}

	switch {
	case m.TotalInteractions >= friendRivalMinInteractions && m.AvgDepthScore >= friendRivalMinDepth:
		return Result{FriendRival, fmt.Sprintf("%d interactions with avg depth %.2f >= %.2f",
			m.TotalInteractions, m.AvgDepthScore, friendRivalMinDepth)}
	case m.TotalInteractions >= knownMinInteractions:
		return Result{Known, fmt.Sprintf("%d interactions >= %d", m.TotalInteractions, knownMinInteractions)}
	case m.TotalInteractions >= acquaintanceMinInteractions:
		return Result{Acquaintance, fmt.Sprintf("%d interactions >= %d", m.TotalInteractions, acquaintanceMinInteractions)}
	default:
		return Result{Stranger, fmt.Sprintf("%d interactions below all thresholds", m.TotalInteractions)}
	}
}

// Demote drops the tier by exactly one level and re-applies the
// classification floor, so a capped account can never end up above its
// ceiling through decay arithmetic. Inner circle never demotes.
func Demote(current Tier, class Classification) Tier {
	if current == InnerCircle || current == Stranger {
		return current
	}
	next := current - 1
	if class.Capped() && next > Acquaintance {
		next = Acquaintance
	}
	return next
}
