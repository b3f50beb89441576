package tier

// DecayThresholds holds the inactivity thresholds for one tier, in days
// since the last interaction. A zero value means the action never applies.
type DecayThresholds struct {
	FlagDays   int // mark cooling; no tier change
	DemoteDays int // drop one tier
}

// decayTable is the per-tier decay policy. Inner circle flags but never
// demotes; strangers have nothing to lose.
var decayTable = map[Tier]DecayThresholds{
	InnerCircle:  {FlagDays: 30, DemoteDays: 0},
	FriendRival:  {FlagDays: 14, DemoteDays: 30},
	Known:        {FlagDays: 7, DemoteDays: 21},
	Acquaintance: {FlagDays: 7, DemoteDays: 14},
	Stranger:     {},
}

// Decay returns the inactivity thresholds for a tier.
func Decay(t Tier) DecayThresholds {
	return decayTable[t]
}
