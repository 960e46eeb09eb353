package urgency

import (
	"strings"
	"time"

	"fieldline/internal/language"
)

// CulturalContext is a coarse classification of conversational tone.
type CulturalContext string

const (
	ContextFormal   CulturalContext = "formal"
	ContextInformal CulturalContext = "informal"
	ContextNeutral  CulturalContext = "neutral"
)

// CustomerType classifies the customer for scoring purposes.
type CustomerType string

const (
	CustomerStandard   CustomerType = "standard"
	CustomerBusiness   CustomerType = "business"
	CustomerVulnerable CustomerType = "vulnerable"
)

// Context carries the situational inputs consumed by the modifier steps.
type Context struct {
	Cultural CulturalContext
	Customer CustomerType

	// AmbientTempC is the outside temperature when known; nil when the
	// upstream weather lookup did not run.
	AmbientTempC *float64
	FreezeRisk   bool
	WaterDamage  bool
	SafetyHazard bool
	Outage       bool

	// Now anchors the temporal modifier; the zero value means time.Now().
	Now time.Time
}

// ModifierDelta is one audited contribution to the final score.
type ModifierDelta struct {
	Name  string
	Delta float64
}

// Score is the auditable result of a comprehensive scoring pass. Base plus
// the breakdown deltas always equals Final.
type Score struct {
	Base      float64
	Final     float64
	Breakdown []ModifierDelta
}

const (
	occurrenceFactor = 0.1
	baseScoreCap     = 0.8

	// ImmediateAttentionThreshold drives escalation. It is deliberately a
	// different constant from EmergencyBoundary; the two have never been
	// reconciled upstream and are kept independently tunable.
	ImmediateAttentionThreshold = 0.7
)

// BaseScore sums occurrences × tier weight × 0.1 over the keyword list,
// capped at 0.8 to reserve headroom for modifiers.
func BaseScore(text string, keywords []string) float64 {
	lowered := strings.ToLower(text)
	var score float64
	for _, keyword := range keywords {
		phrase := strings.ToLower(strings.TrimSpace(keyword))
		if phrase == "" {
			continue
		}
		count := strings.Count(lowered, phrase)
		if count == 0 {
			continue
		}
		score += float64(count) * KeywordWeight(phrase) * occurrenceFactor
	}
	if score > baseScoreCap {
		score = baseScoreCap
	}
	return score
}

// Additive cultural constants keyed by language and formality. Direct,
// informal urgency speech raises the score slightly; Spanish-speaking
// callers in this corpus under-report urgency in formal registers, hence
// the nonzero neutral bump.
var culturalTable = map[language.Code]map[CulturalContext]float64{
	language.English: {
		ContextFormal:   0,
		ContextInformal: 0.05,
		ContextNeutral:  0,
	},
	language.Spanish: {
		ContextFormal:   0.05,
		ContextInformal: 0.1,
		ContextNeutral:  0.05,
	},
}

// CulturalModifier returns the additive cultural constant for a
// language/formality pair. Unknown pairs contribute nothing.
func CulturalModifier(lang language.Code, cultural CulturalContext) float64 {
	if table, ok := culturalTable[lang]; ok {
		return table[cultural]
	}
	return 0
}

// IndustryModifier returns the industry-specific additive bump and the
// names of the conditions that applied. Unknown industries contribute
// nothing.
func IndustryModifier(industryCode string, ctx Context) (float64, []string) {
	var delta float64
	var applied []string
	switch strings.ToLower(strings.TrimSpace(industryCode)) {
	case "hvac":
		if ctx.AmbientTempC != nil {
			switch {
			case *ctx.AmbientTempC <= 0:
				delta += 0.2
				applied = append(applied, "subfreezing_ambient")
			case *ctx.AmbientTempC >= 35:
				delta += 0.15
				applied = append(applied, "extreme_heat")
			}
		}
	case "plumbing":
		if ctx.FreezeRisk {
			delta += 0.25
			applied = append(applied, "freeze_risk")
		}
		if ctx.WaterDamage {
			delta += 0.2
			applied = append(applied, "water_damage")
		}
	case "electrical":
		if ctx.SafetyHazard {
			delta += 0.3
			applied = append(applied, "safety_hazard")
		}
		if ctx.Outage {
			delta += 0.2
			applied = append(applied, "outage")
		}
	}
	return delta, applied
}

// TemporalModifier bumps the score during night hours and the two daily
// rush windows.
func TemporalModifier(now time.Time) float64 {
	if now.IsZero() {
		now = time.Now()
	}
	hour := now.Hour()
	switch {
	case hour >= 22 || hour < 6:
		return 0.1
	case (hour >= 7 && hour < 9) || (hour >= 16 && hour < 19):
		return 0.05
	default:
		return 0
	}
}

// CustomerTypeModifier bumps the score for vulnerable and business
// customers.
func CustomerTypeModifier(customer CustomerType) float64 {
	switch customer {
	case CustomerVulnerable:
		return 0.1
	case CustomerBusiness:
		return 0.05
	default:
		return 0
	}
}

// Comprehensive applies base → cultural → industry → temporal → customer in
// that fixed order, clamping to 1.0 after every step and recording each
// step's effective delta.
func Comprehensive(text string, keywords []string, lang language.Code, industryCode string, ctx Context) Score {
	score := Score{Base: BaseScore(text, keywords)}
	current := score.Base

	current = apply(&score, current, "cultural", CulturalModifier(lang, ctx.Cultural))
	industryDelta, _ := IndustryModifier(industryCode, ctx)
	current = apply(&score, current, "industry", industryDelta)
	current = apply(&score, current, "temporal", TemporalModifier(ctx.Now))
	current = apply(&score, current, "customer_type", CustomerTypeModifier(ctx.Customer))

	score.Final = current
	return score
}

// apply clamps the running score at 1.0 and records the effective delta so
// breakdown entries always sum to Final - Base.
func apply(score *Score, current float64, name string, delta float64) float64 {
	next := current + delta
	if next > 1 {
		next = 1
	}
	if next < 0 {
		next = 0
	}
	score.Breakdown = append(score.Breakdown, ModifierDelta{Name: name, Delta: next - current})
	return next
}

// RequiresImmediateAttention reports whether a score crosses the
// escalation threshold.
func RequiresImmediateAttention(score float64) bool {
	return score >= ImmediateAttentionThreshold
}
