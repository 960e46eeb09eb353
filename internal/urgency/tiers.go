package urgency

// Keyword weight tiers. A keyword phrase absent from every tier scores the
// default weight, which keeps catalogs extendable without code changes.
const (
	weightHigh    = 3.0
	weightMedium  = 2.0
	weightLow     = 1.0
	weightDefault = 1.5
)

var highTier = phraseSet(
	"emergency", "emergencia",
	"no heat", "sin calefacción",
	"gas leak", "fuga de gas",
	"flooding", "inundación",
	"burst pipe", "tubería rota",
	"fire", "incendio",
	"sparks", "chispas",
	"no power", "sin electricidad",
)

var mediumTier = phraseSet(
	"urgent", "urgente",
	"leak", "fuga",
	"not working", "no funciona",
	"broken", "roto",
	"no hot water", "sin agua caliente",
	"outage", "apagón",
)

var lowTier = phraseSet(
	"thermostat", "termostato",
	"noise", "ruido",
	"filter", "filtro",
	"drip", "goteo",
)

func phraseSet(phrases ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		set[p] = struct{}{}
	}
	return set
}

// KeywordWeight returns the tier weight for a keyword phrase.
func KeywordWeight(phrase string) float64 {
	if _, ok := highTier[phrase]; ok {
		return weightHigh
	}
	if _, ok := mediumTier[phrase]; ok {
		return weightMedium
	}
	if _, ok := lowTier[phrase]; ok {
		return weightLow
	}
	return weightDefault
}
