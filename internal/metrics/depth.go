package metrics

import (
	"strings"
)

// Depth score weights. The score is a cheap, deterministic proxy for how
// much substance a single message carries, clamped to [0, 1].
const (
	lengthCap     = 0.3 // max contribution from raw length
	lengthDivisor = 500 // chars for full length credit
	questionBonus = 0.2
	mentionBonus  = 0.15 // cross-references a third account
	callbackBonus = 0.15 // references shared history
	varietyCap    = 0.2  // max contribution from word variety
	slopPenalty   = 0.4
)

// DepthScore scores a message's substance from 0 to 1. Pure function of the
// text: missing or malformed content scores 0 rather than erroring.
func DepthScore(content string) float64 {
	content = strings.TrimSpace(content)
	if content == "" {
		return 0.0
	}

	score := 0.0

	// Length, capped
	score += min(lengthCap, float64(len(content))/lengthDivisor)

	if strings.Contains(content, "?") {
		score += questionBonus
	}

	if strings.Contains(content, "@") {
		score += mentionBonus
	}

	if callbackScanner.any(content) {
		score += callbackBonus
	}

	if slopScanner.any(content) {
		score -= slopPenalty
	}

	// Word variety: repetitive messages earn less
	words := strings.Fields(content)
	if len(words) > 3 {
		unique := make(map[string]bool, len(words))
		for _, w := range words {
			unique[strings.ToLower(w)] = true
		}
		score += float64(len(unique)) / float64(len(words)) * varietyCap
	}

	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
