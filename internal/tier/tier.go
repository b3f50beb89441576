// Package tier implements the relationship tier state machine: the closed
// classification and tier enumerations, the promotion thresholds, and the
// inactivity decay table.
package tier

import "fmt"

// Tier is the discrete relationship-trust level.
type Tier int

const (
	Stranger     Tier = 0
	Acquaintance Tier = 1
	Known        Tier = 2
	FriendRival  Tier = 3
	InnerCircle  Tier = 4
)

func (t Tier) String() string {
	switch t {
	case Stranger:
		return "Stranger"
	case Acquaintance:
		return "Acquaintance"
	case Known:
		return "Known"
	case FriendRival:
		return "Friend/Rival"
	case InnerCircle:
		return "Inner Circle"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// Valid reports whether t is one of the five defined tiers.
func (t Tier) Valid() bool {
	return t >= Stranger && t <= InnerCircle
}

// Classification is the behavioral label assigned to an account,
// independently of its tier.
type Classification string

const (
	ClassStranger    Classification = "stranger"
	ClassBot         Classification = "bot"
	ClassSpammer     Classification = "spammer"
	ClassQuality     Classification = "quality"
	ClassInnerCircle Classification = "inner_circle"
)

// ParseClassification validates a classification label.
func ParseClassification(s string) (Classification, error) {
	switch c := Classification(s); c {
	case ClassStranger, ClassBot, ClassSpammer, ClassQuality, ClassInnerCircle:
		return c, nil
	default:
		return "", fmt.Errorf("unknown classification %q", s)
	}
}

// Capped reports whether the classification hard-caps the account at
// Acquaintance. Engagement-farming patterns never earn trust tiers.
func (c Classification) Capped() bool {
	return c == ClassBot || c == ClassSpammer
}
