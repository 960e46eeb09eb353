package language_test

import (
	"testing"

	"fieldline/internal/language"
)

func TestDetectEnglish(t *testing.T) {
	d := language.NewDetector(language.English)
	if got := d.Detect("This is an emergency, no heat!"); got != language.English {
		t.Fatalf("expected en, got %q", got)
	}
}

func TestDetectSpanish(t *testing.T) {
	d := language.NewDetector(language.English)
	if got := d.Detect("Emergencia, sin calefacción, ahora mismo"); got != language.Spanish {
		t.Fatalf("expected es, got %q", got)
	}
}

func TestDetectTieResolvesToFallback(t *testing.T) {
	// "emergency" and "emergencia" carry the same weight in both tables.
	text := "emergency emergencia"
	for _, fallback := range []language.Code{language.English, language.Spanish} {
		d := language.NewDetector(fallback)
		if got := d.Detect(text); got != fallback {
			t.Fatalf("tie with fallback %q resolved to %q", fallback, got)
		}
	}
}

func TestDetectEmptyTextUsesFallback(t *testing.T) {
	d := language.NewDetector(language.Spanish)
	if got := d.Detect("zzz qqq"); got != language.Spanish {
		t.Fatalf("expected fallback es, got %q", got)
	}
}

func TestDetectWithConfidence(t *testing.T) {
	d := language.NewDetector(language.English)

	det := d.DetectWithConfidence("Emergencia, ayuda por favor")
	if det.Language != language.Spanish {
		t.Fatalf("expected es, got %q", det.Language)
	}
	if det.Confidence <= 0.5 || det.Confidence > 1 {
		t.Fatalf("expected confidence in (0.5, 1], got %v", det.Confidence)
	}
	if len(det.MatchedIndicators) == 0 {
		t.Fatal("expected matched indicators")
	}

	neutral := d.DetectWithConfidence("12345")
	if neutral.Confidence != 0.5 {
		t.Fatalf("expected default confidence 0.5 for unmatched text, got %v", neutral.Confidence)
	}
	if neutral.Language != language.English {
		t.Fatalf("expected fallback language, got %q", neutral.Language)
	}
}

func TestDetectSwitching(t *testing.T) {
	d := language.NewDetector(language.English)

	report := d.DetectSwitching("Hello, this is the dispatcher. Emergencia, sin calefacción ahora mismo. Thank you and have a good day.")
	if !report.HasSwitching {
		t.Fatalf("expected switching, segments: %+v", report.Segments)
	}
	if len(report.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(report.Segments))
	}
	want := []language.Code{language.English, language.Spanish, language.English}
	for i, segment := range report.Segments {
		if segment.Language != want[i] {
			t.Fatalf("segment %d: expected %q, got %q (%q)", i, want[i], segment.Language, segment.Text)
		}
	}
}

func TestDetectSwitchingSingleLanguage(t *testing.T) {
	d := language.NewDetector(language.English)
	report := d.DetectSwitching("The heater is broken. Please help with this.")
	if report.HasSwitching {
		t.Fatalf("unexpected switching: %+v", report.Segments)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want language.Code
	}{
		{"es", language.Spanish},
		{"ES", language.Spanish},
		{"es-MX", language.Spanish},
		{"en-US", language.English},
		{"", ""},
		{"not a tag at all !!", ""},
		{"fr", ""}, // recognized by the parser, outside the closed set
	}
	for _, tc := range tests {
		if got := language.Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
