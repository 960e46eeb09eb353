// Package triage turns raw phone-call transcripts into emergency
// assessments: language detection, urgency scoring, and the escalation
// decision that drives notification dispatch.
package triage

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fieldline/internal/audit"
	"fieldline/internal/config"
	"fieldline/internal/language"
	"fieldline/internal/logging"
	"fieldline/internal/urgency"
)

// ConversationTurn is one caller utterance handed to the engine.
type ConversationTurn struct {
	Text             string
	Timestamp        time.Time
	DeclaredLanguage string

	// Caller identity from telephony metadata, when available.
	CallerID   string
	CallerName string
}

// Assessment is the immutable result of one triage pass. Callers receive
// it by value; the engine never retains or mutates a returned assessment.
type Assessment struct {
	ID                 string                  `json:"id"`
	UrgencyScore       float64                 `json:"urgency_score"`
	BaseScore          float64                 `json:"base_score"`
	Breakdown          []urgency.ModifierDelta `json:"breakdown,omitempty"`
	Level              urgency.Level           `json:"level"`
	DetectedLanguage   language.Code           `json:"detected_language"`
	LanguageConfidence float64                 `json:"language_confidence"`
	MatchedKeywords    []string                `json:"matched_keywords,omitempty"`
	CulturalContext    urgency.CulturalContext `json:"cultural_context"`
	IndustryModifiers  []string                `json:"industry_modifiers,omitempty"`
	EscalationRequired bool                    `json:"escalation_required"`
	CallerID           string                  `json:"caller_id,omitempty"`
	CallerName         string                  `json:"caller_name,omitempty"`
	Timestamp          time.Time               `json:"timestamp"`
}

// Notifier starts the notification workflow for an escalated assessment.
// The dispatch package provides the production implementation.
type Notifier interface {
	Dispatch(ctx context.Context, assessment Assessment) error
}

// Engine performs triage for one organization.
type Engine struct {
	industryCode string
	escalation   float64
	detector     *language.Detector
	notifier     Notifier
	sink         *audit.Sink
	logger       *slog.Logger
}

// NewEngine constructs a triage engine. notifier and sink may be nil;
// assessment then still works but nothing is dispatched or audited.
func NewEngine(cfg *config.Config, detector *language.Detector, notifier Notifier, sink *audit.Sink, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	if detector == nil {
		detector = language.NewDetector(language.Normalize(cfg.Organization.DefaultLanguage))
	}
	return &Engine{
		industryCode: cfg.Organization.IndustryCode,
		escalation:   cfg.Thresholds.Escalation,
		detector:     detector,
		notifier:     notifier,
		sink:         sink,
		logger:       logger.With(logging.String(logging.FieldComponent, "triage")),
	}
}

// Assess scores one conversation turn. It is a pure computation over the
// turn and scoring context: no storage, no network, no dispatch.
func (e *Engine) Assess(turn ConversationTurn, scoring urgency.Context) Assessment {
	lang, confidence := e.resolveLanguage(turn)

	keywords := Keywords(e.industryCode, lang)
	matched := matchKeywords(turn.Text, keywords)

	if scoring.Cultural == "" {
		scoring.Cultural = classifyCulture(turn.Text, lang)
	}
	if scoring.Now.IsZero() {
		scoring.Now = turn.Timestamp
	}

	score := urgency.Comprehensive(turn.Text, keywords, lang, e.industryCode, scoring)
	_, industryApplied := urgency.IndustryModifier(e.industryCode, scoring)

	ts := turn.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	assessment := Assessment{
		ID:                 uuid.NewString(),
		UrgencyScore:       score.Final,
		BaseScore:          score.Base,
		Breakdown:          score.Breakdown,
		Level:              urgency.Classify(score.Final),
		DetectedLanguage:   lang,
		LanguageConfidence: confidence,
		MatchedKeywords:    matched,
		CulturalContext:    scoring.Cultural,
		IndustryModifiers:  industryApplied,
		EscalationRequired: score.Final >= e.escalation,
		CallerID:           turn.CallerID,
		CallerName:         turn.CallerName,
		Timestamp:          ts,
	}

	e.logger.Info("assessment complete",
		logging.String("assessment_id", assessment.ID),
		logging.Float64("score", assessment.UrgencyScore),
		logging.String("level", string(assessment.Level)),
		logging.String("language", string(assessment.DetectedLanguage)),
		logging.Bool("escalation", assessment.EscalationRequired))

	if e.sink != nil {
		e.sink.Record(audit.Record{
			Event:        "assessment",
			AssessmentID: assessment.ID,
			Language:     string(assessment.DetectedLanguage),
			Score:        assessment.UrgencyScore,
			Escalated:    assessment.EscalationRequired,
			Detail:       strings.Join(assessment.MatchedKeywords, ","),
			Timestamp:    assessment.Timestamp,
		})
	}

	return assessment
}

// AssessAndNotify assesses the turn and, when escalation is required,
// starts the notification workflow. Dispatch failures are logged and
// reflected in the returned flag but never fail the assessment itself:
// the caller on the phone must get a triage answer regardless of what
// the notification plane is doing.
func (e *Engine) AssessAndNotify(ctx context.Context, turn ConversationTurn, scoring urgency.Context) (Assessment, bool) {
	assessment := e.Assess(turn, scoring)
	if !assessment.EscalationRequired || e.notifier == nil {
		return assessment, false
	}

	if err := e.notifier.Dispatch(ctx, assessment); err != nil {
		e.logger.Error("notification dispatch failed",
			logging.String("assessment_id", assessment.ID),
			logging.Error(err))
		return assessment, false
	}
	return assessment, true
}

// resolveLanguage honors a declared language when it is supported,
// otherwise detects from the text.
func (e *Engine) resolveLanguage(turn ConversationTurn) (language.Code, float64) {
	if declared := language.Normalize(turn.DeclaredLanguage); declared != "" {
		return declared, 1
	}
	detection := e.detector.DetectWithConfidence(turn.Text)
	return detection.Language, detection.Confidence
}

func matchKeywords(text string, keywords []string) []string {
	lowered := strings.ToLower(text)
	var matched []string
	for _, keyword := range keywords {
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			matched = append(matched, keyword)
		}
	}
	return matched
}

// classifyCulture applies a marker heuristic: direct-urgency speech wins
// over formal address markers, and text with neither is neutral.
func classifyCulture(text string, lang language.Code) urgency.CulturalContext {
	lowered := strings.ToLower(text)
	for _, marker := range urgencyMarkers[lang] {
		if strings.Contains(lowered, marker) {
			return urgency.ContextInformal
		}
	}
	for _, marker := range formalMarkers[lang] {
		if strings.Contains(lowered, marker) {
			return urgency.ContextFormal
		}
	}
	return urgency.ContextNeutral
}
