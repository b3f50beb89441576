package llm

import "fmt"

// ProfileFacts is the structured slice of a profile that narrative prompts
// are grounded on. Free text in, free text out — the structured store is
// never written from model output except through these prompts' results.
type ProfileFacts struct {
	Account        string
	TierName       string
	Tier           int
	Classification string
	Interactions   int
	FirstMet       string // date or "unknown"
	Topics         string // comma-joined
	Tone           string
	AvgDepth       float64
}

// BackstoryPrompt builds the backstory generation prompt. theirText and
// ourText are bounded recent windows of the conversation, already split by
// author so the model does not attribute the agent's words to the account.
func BackstoryPrompt(self string, f ProfileFacts, theirText, ourText string) string {
	if theirText == "" {
		theirText = fmt.Sprintf("(No direct messages from them to %s)", self)
	}
	if ourText == "" {
		ourText = fmt.Sprintf("(%s hasn't replied to them yet)", self)
	}

	return fmt.Sprintf(`You are %[1]s's memory system. Write a backstory for @%[2]s based on their interaction history.

ACCOUNT: @%[2]s
RELATIONSHIP TIER: %[3]s (Tier %[4]d)
CLASSIFICATION: %[5]s
TOTAL INTERACTIONS: %[6]d
FIRST INTERACTION: %[7]s
TOPICS DISCUSSED: %[8]s
DETECTED TONE: %[9]s
AVERAGE MESSAGE DEPTH: %[10].2f

=== WHAT @%[2]s SAID TO %[1]s ===
%[11]s

=== WHAT %[1]s SAID TO @%[2]s ===
%[12]s

Write 2-4 short paragraphs from %[1]s's perspective covering:
1. How %[1]s first encountered this account and initial impressions
2. Notable patterns in THEIR messages (what do THEY talk about? how do THEY engage?)
3. What %[1]s genuinely thinks of them, referencing things THEY actually said
4. The evolution of the relationship and current status

Only reference things @%[2]s actually said, never %[1]s's own words.
If they are a bot or spammer, note it with dry skepticism. If they are
quality, acknowledge it without gushing.

Keep it SHORT: around 150 words. Punchy, not rambling. Return only the
backstory text, no preamble.`,
		self, f.Account, f.TierName, f.Tier, f.Classification, f.Interactions,
		f.FirstMet, f.Topics, f.Tone, f.AvgDepth, theirText, ourText)
}

// ArcPrompt builds the one-sentence relationship arc prompt.
func ArcPrompt(self string, f ProfileFacts) string {
	return fmt.Sprintf(`Write a ONE sentence relationship arc for @%s from %s's perspective.

Facts:
- Classification: %s
- Tier: %s
- Total interactions: %d
- First interaction: %s

Examples of good arcs:
- "Started as a random mention, proved to be thoughtful, now a regular presence."
- "Clearly a bot from day one. The noise is tolerated."
- "Rival energy from the start. Mutual respect wrapped in competition."

Write just the arc sentence, nothing else.`,
		f.Account, self, f.Classification, f.TierName, f.Interactions, f.FirstMet)
}
