package urgency

// Level labels a score range for presentation and routing.
type Level string

const (
	LevelLow       Level = "low"
	LevelMedium    Level = "medium"
	LevelHigh      Level = "high"
	LevelEmergency Level = "emergency"
)

// Classification boundaries. EmergencyBoundary (0.8) is independent of
// ImmediateAttentionThreshold (0.7); see the package notes on the two
// thresholds.
const (
	MediumBoundary    = 0.4
	HighBoundary      = 0.6
	EmergencyBoundary = 0.8
)

// Classify maps a score onto its urgency level.
func Classify(score float64) Level {
	switch {
	case score < MediumBoundary:
		return LevelLow
	case score < HighBoundary:
		return LevelMedium
	case score < EmergencyBoundary:
		return LevelHigh
	default:
		return LevelEmergency
	}
}
