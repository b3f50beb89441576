package metrics

import (
	"sort"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

// topicKeywords maps each topic label to the keywords that signal it.
// Membership lookup only — an interaction maps to every topic whose
// keyword set it touches, or to none.
var topicKeywords = map[string][]string{
	"crypto":     {"token", "blockchain", "defi", "nft", "trading", "eth", "btc", "solana"},
	"ai":         {"agent", "llm", "gpt", "model", "inference", "training", "neural"},
	"philosophy": {"existence", "meaning", "consciousness", "truth", "reality", "zen", "wisdom"},
	"platform":   {"leaderboard", "views", "engagement", "algorithm", "followers", "timeline"},
	"humor":      {"lol", "lmao", "joke", "funny", "roast", "based"},
	"market":     {"bull", "bear", "pump", "dump", "price", "chart", "dip"},
	"tech":       {"code", "api", "deploy", "bug", "feature", "ship"},
}

// slopPhrases are generic low-effort replies. A match costs depth score.
var slopPhrases = []string{
	"great point", "well said", "love this", "so true", "this!",
	"agree", "nice", "gm", "wagmi", "lfg", "bullish", "facts",
	"needed to be said", "spot on", "nailed it",
}

// callbackPhrases signal the author is referencing shared history,
// which is a strong depth marker.
var callbackPhrases = []string{
	"you said", "earlier", "remember", "last time",
}

// keywordScanner wraps an Aho-Corasick automaton so a single pass over the
// text answers "which of these phrases appear".
type keywordScanner struct {
	ac       ahocorasick.AhoCorasick
	patterns []string
}

func newKeywordScanner(patterns []string) *keywordScanner {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  true,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
	})
	return &keywordScanner{
		ac:       builder.Build(patterns),
		patterns: patterns,
	}
}

// matches returns the set of pattern indices found in text.
func (s *keywordScanner) matches(text string) map[int]bool {
	found := make(map[int]bool)
	for _, m := range s.ac.FindAll(text) {
		found[m.Pattern()] = true
	}
	return found
}

// any reports whether any pattern appears in text.
func (s *keywordScanner) any(text string) bool {
	return len(s.ac.FindAll(text)) > 0
}

var (
	topicScanner    *keywordScanner
	topicByPattern  []string // pattern index -> topic label
	slopScanner     *keywordScanner
	callbackScanner *keywordScanner
)

func init() {
	topics := make([]string, 0, len(topicKeywords))
	for t := range topicKeywords {
		topics = append(topics, t)
	}
	sort.Strings(topics)

	var patterns []string
	for _, t := range topics {
		for _, kw := range topicKeywords[t] {
			patterns = append(patterns, kw)
			topicByPattern = append(topicByPattern, t)
		}
	}
	topicScanner = newKeywordScanner(patterns)
	slopScanner = newKeywordScanner(slopPhrases)
	callbackScanner = newKeywordScanner(callbackPhrases)
}

// Topics returns the sorted set of topic labels whose keywords appear in the
// text. Empty or unmatched text yields no topics.
func Topics(text string) []string {
	if text == "" {
		return nil
	}

	seen := make(map[string]bool)
	for idx := range topicScanner.matches(text) {
		seen[topicByPattern[idx]] = true
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
