package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
)

// Code is an ISO 639-1 language code.
type Code string

const (
	English Code = "en"
	Spanish Code = "es"
)

// Phrase is a weighted language indicator.
type Phrase struct {
	Text   string
	Weight float64
}

type profile struct {
	code    Code
	phrases []Phrase
}

// Indicator tables are fixed at startup. Weights favor phrases that are
// unambiguous for the language; short function words carry low weight
// because they can appear as substrings of the other language.
var profiles = []profile{
	{
		code: English,
		phrases: []Phrase{
			{"the", 1.0}, {"and", 1.0}, {"this", 1.0}, {"that", 1.0},
			{"is", 1.0}, {"have", 1.0}, {"with", 1.0}, {"what", 1.0},
			{"hello", 1.5}, {"please", 1.5}, {"thank you", 2.0},
			{"help", 1.5}, {"broken", 1.5}, {"leaking", 1.5},
			{"emergency", 2.5}, {"no heat", 2.5}, {"not working", 2.0},
			{"right now", 2.0}, {"as soon as possible", 2.0},
		},
	},
	{
		code: Spanish,
		phrases: []Phrase{
			{"sin", 1.0}, {"ahora", 1.0}, {"pero", 1.0}, {"porque", 1.0},
			{"hola", 1.5}, {"gracias", 1.5}, {"usted", 1.5}, {"señor", 1.5},
			{"está", 1.5}, {"tengo", 1.5}, {"ayuda", 1.5}, {"fuga", 1.5},
			{"por favor", 2.0}, {"buenos días", 2.0}, {"urgente", 2.0},
			{"no funciona", 2.0}, {"ahora mismo", 2.0},
			{"inmediatamente", 2.0}, {"emergencia", 2.5},
			{"sin calefacción", 2.5}, {"calefacción", 2.0},
		},
	},
}

var supported = func() map[Code]struct{} {
	set := make(map[Code]struct{}, len(profiles))
	for _, p := range profiles {
		set[p.code] = struct{}{}
	}
	return set
}()

// Detection is the result of classifying one text with confidence.
type Detection struct {
	Language          Code
	Confidence        float64
	MatchedIndicators []string
}

// Segment is one sentence-level slice of a switching report.
type Segment struct {
	Text     string
	Language Code
}

// SwitchReport flags mid-conversation language switching.
type SwitchReport struct {
	HasSwitching bool
	Segments     []Segment
}

// Detector classifies text against the built-in phrase tables.
type Detector struct {
	fallback Code
}

// NewDetector returns a detector that resolves ties and unmatched text to
// fallback. An unsupported fallback defaults to English.
func NewDetector(fallback Code) *Detector {
	if _, ok := supported[fallback]; !ok {
		fallback = English
	}
	return &Detector{fallback: fallback}
}

// Fallback returns the configured default language.
func (d *Detector) Fallback() Code {
	return d.fallback
}

// Detect returns the language with the highest weighted indicator sum.
// Ties, including all-zero scores, resolve to the configured fallback.
func (d *Detector) Detect(text string) Code {
	scores, _ := score(text)
	best, tied := top(scores)
	if tied || scores[best] == 0 {
		return d.fallback
	}
	return best
}

// DetectWithConfidence classifies text and reports a normalized confidence:
// the winning score divided by the total score, 0.5 when nothing matched.
func (d *Detector) DetectWithConfidence(text string) Detection {
	scores, matched := score(text)
	best, tied := top(scores)

	var total float64
	for _, s := range scores {
		total += s
	}

	detection := Detection{Language: best, Confidence: 0.5}
	if tied || scores[best] == 0 {
		detection.Language = d.fallback
	}
	if total > 0 {
		detection.Confidence = scores[best] / total
	}
	detection.MatchedIndicators = matched[detection.Language]
	return detection
}

// DetectSwitching splits text on sentence terminators, classifies each
// segment independently, and flags a switch whenever consecutive segments
// differ in detected language.
func (d *Detector) DetectSwitching(text string) SwitchReport {
	report := SwitchReport{}
	for _, raw := range splitSentences(text) {
		segment := Segment{Text: raw, Language: d.Detect(raw)}
		if n := len(report.Segments); n > 0 && report.Segments[n-1].Language != segment.Language {
			report.HasSwitching = true
		}
		report.Segments = append(report.Segments, segment)
	}
	return report
}

// Normalize canonicalizes a declared language tag ("es-MX", "Spanish",
// "EN") to a supported Code. Returns empty for unrecognized or
// unsupported input.
func Normalize(value string) Code {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	tag, err := xlanguage.Parse(value)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	code := Code(base.String())
	if _, ok := supported[code]; !ok {
		return ""
	}
	return code
}

// Supported reports whether code is in the closed language set.
func Supported(code Code) bool {
	_, ok := supported[code]
	return ok
}

func score(text string) (map[Code]float64, map[Code][]string) {
	lowered := strings.ToLower(text)
	scores := make(map[Code]float64, len(profiles))
	matched := make(map[Code][]string, len(profiles))
	for _, p := range profiles {
		var sum float64
		for _, phrase := range p.phrases {
			count := strings.Count(lowered, phrase.Text)
			if count == 0 {
				continue
			}
			sum += float64(count) * phrase.Weight
			matched[p.code] = append(matched[p.code], phrase.Text)
		}
		scores[p.code] = sum
	}
	return scores, matched
}

// top returns the highest-scoring language in table order and whether the
// top score is shared by more than one language.
func top(scores map[Code]float64) (Code, bool) {
	var best Code
	bestScore := -1.0
	tied := false
	for _, p := range profiles {
		s := scores[p.code]
		switch {
		case s > bestScore:
			best = p.code
			bestScore = s
			tied = false
		case s == bestScore:
			tied = true
		}
	}
	return best, tied
}

func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '.', '!', '?', '¡', '¿', ';', '\n':
			return true
		}
		return false
	})
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return segments
}
