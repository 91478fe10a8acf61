// Package risk maps a predicted probability to an advisory tier.
package risk

// Tier is one of the three advisory outcomes.
type Tier string

const (
	Low      Tier = "low"
	Moderate Tier = "moderate"
	High     Tier = "high"
)

const (
	HighThreshold     = 0.7
	ModerateThreshold = 0.4
)

// Classify picks the tier for p. Thresholds are exclusive from below:
// exactly 0.7 is moderate and exactly 0.4 is low.
func Classify(p float64) Tier {
	switch {
	case p > HighThreshold:
		return High
	case p > ModerateThreshold:
		return Moderate
	default:
		return Low
	}
}

// Level is the presentation severity of a tier.
func (t Tier) Level() string {
	switch t {
	case High:
		return "error"
	case Moderate:
		return "warning"
	default:
		return "info"
	}
}

func (t Tier) Advisory() string {
	switch t {
	case High:
		return "High risk: please consider getting a health check-up."
	case Moderate:
		return "Moderate risk: please keep up a healthy lifestyle."
	default:
		return "Low risk: keep it up."
	}
}
