package triage

import (
	"strings"

	"fieldline/internal/language"
)

// Keyword catalogs per industry and language. Catalogs deliberately stay
// on high-stakes vocabulary; low-stakes words like "question" or
// "maintenance" would inflate routine calls and are excluded.
var catalogs = map[string]map[language.Code][]string{
	"hvac": {
		language.English: {
			"emergency", "no heat", "gas leak", "urgent",
			"broken", "not working", "thermostat", "noise",
		},
		language.Spanish: {
			"emergencia", "sin calefacción", "fuga de gas", "urgente",
			"roto", "no funciona", "termostato", "ruido",
		},
	},
	"plumbing": {
		language.English: {
			"emergency", "flooding", "burst pipe", "urgent",
			"leak", "no hot water", "drip",
		},
		language.Spanish: {
			"emergencia", "inundación", "tubería rota", "urgente",
			"fuga", "sin agua caliente", "goteo",
		},
	},
	"electrical": {
		language.English: {
			"emergency", "fire", "sparks", "no power",
			"urgent", "outage", "not working",
		},
		language.Spanish: {
			"emergencia", "incendio", "chispas", "sin electricidad",
			"urgente", "apagón", "no funciona",
		},
	},
}

// Fallback for industries without a curated catalog.
var genericCatalog = map[language.Code][]string{
	language.English: {"emergency", "urgent", "broken", "not working"},
	language.Spanish: {"emergencia", "urgente", "roto", "no funciona"},
}

// Keywords returns the urgency keyword catalog for an industry and
// language. Unknown industries get a generic catalog.
func Keywords(industryCode string, lang language.Code) []string {
	industry := strings.ToLower(strings.TrimSpace(industryCode))
	if byLang, ok := catalogs[industry]; ok {
		if keywords, ok := byLang[lang]; ok {
			return keywords
		}
	}
	return genericCatalog[lang]
}

// Formal address markers per language. Presence shifts the cultural
// classification toward formal unless direct-urgency speech dominates.
var formalMarkers = map[language.Code][]string{
	language.English: {"please", "sir", "madam", "good morning", "good afternoon", "thank you"},
	language.Spanish: {"usted", "por favor", "buenos días", "buenas tardes", "gracias", "disculpe"},
}

// Direct-urgency markers. These indicate informal, pressing speech.
var urgencyMarkers = map[language.Code][]string{
	language.English: {"right now", "immediately", "hurry", "asap", "now!"},
	language.Spanish: {"ahora mismo", "inmediatamente", "rápido", "apúrese", "ya mismo"},
}
