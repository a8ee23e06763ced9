package models

import "time"

// AnalysisRequest is the input to the analysis pipeline
type AnalysisRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language,omitempty"` // Language to render the improved version in; defaults to the detected language
}

// DetectedLanguage is the best-guess language of the input text
type DetectedLanguage struct {
	Code       string  `json:"code"`       // ISO 639-1 code, e.g. "en"
	Confidence float64 `json:"confidence"` // 0.0 to 1.0; 0.0 when detection fell back to the default
}

// TranslationResult is the outcome of one translation call
type TranslationResult struct {
	SourceText     string `json:"source_text"`
	TranslatedText string `json:"translated_text"` // Equals SourceText on identity short-circuit or soft failure
	SourceLang     string `json:"source_lang"`
	TargetLang     string `json:"target_lang"`
	Fallback       bool   `json:"fallback"` // True when translation was attempted but did not occur
}

// Misunderstanding is one plausible misreading of the message
type Misunderstanding struct {
	Meaning         string `json:"misunderstood_meaning"`
	EmotionalImpact string `json:"emotional_impact,omitempty"`
	Likelihood      int    `json:"likelihood,omitempty"` // 1 to 10
}

// ReasoningJudgment is the structured output of the reasoning service.
// Every field is optional: the service returns LLM-generated text and any
// field may be missing from a partially parseable response. Absent numeric
// fields are nil, absent strings are empty.
type ReasoningJudgment struct {
	Emotion          string             `json:"primary_emotion,omitempty"` // neutral, joy, anger, sadness, fear, surprise, confusion, passive-aggressive
	Intensity        *float64           `json:"intensity,omitempty"`       // 0 to 10
	HiddenFeelings   string             `json:"hidden_feelings,omitempty"`
	ToneMarkers      []string           `json:"tone_markers,omitempty"`
	EmotionsDetected []string           `json:"emotions_detected,omitempty"`
	RawAmbiguity     *float64           `json:"ambiguity_score,omitempty"` // 0 to 10, before cultural adjustment
	Misunderstands   []Misunderstanding `json:"misunderstandings,omitempty"`
	ImprovedVersion  string             `json:"improved_version,omitempty"`
}

// Empty reports whether the judgment carries no usable fields
func (j ReasoningJudgment) Empty() bool {
	return j.Emotion == "" && j.RawAmbiguity == nil &&
		len(j.Misunderstands) == 0 && j.ImprovedVersion == ""
}

// CulturalContext describes the directness norms applied to the score
type CulturalContext struct {
	CultureCode string  `json:"culture_code"` // e.g. "US", "JP"
	Formality   string  `json:"formality"`    // direct, indirect, neutral
	Multiplier  float64 `json:"multiplier"`
}

// AnalysisResult is the final assembled analysis returned to the caller.
// Constructed once per request and never mutated after return.
type AnalysisResult struct {
	ID           string           `json:"id"`
	OriginalText string           `json:"original_text"`
	Language     DetectedLanguage `json:"language"`

	TranslatedText string `json:"translated_text"` // Input normalized to the working language

	// Emotion analysis
	Emotion          string   `json:"emotion"`
	Intensity        float64  `json:"intensity"`
	HiddenFeelings   string   `json:"hidden_feelings,omitempty"`
	ToneMarkers      []string `json:"tone_markers"`
	EmotionsDetected []string `json:"emotions_detected"`

	// Ambiguity
	AmbiguityScore     float64 `json:"ambiguity_score"` // Culturally adjusted, clamped to [0,10], one decimal
	RiskLevel          string  `json:"misunderstanding_risk"`
	ClarityImprovement int     `json:"clarity_improvement"` // Percent, capped at 95

	Misunderstandings       []string           `json:"misunderstandings"`
	MisunderstandingDetails []Misunderstanding `json:"misunderstanding_details"`
	ImprovedVersion         string             `json:"improved_version"`

	CulturalContext CulturalContext `json:"cultural_context"`

	// Degradation flags: the pipeline always completes, but stages that
	// soft-failed record why their fields hold defaults
	Degraded        bool     `json:"degraded"`
	DegradedReasons []string `json:"degraded_reasons,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Risk level thresholds over the final ambiguity score
const (
	RiskHigh   = "HIGH"   // score >= 7
	RiskMedium = "MEDIUM" // score >= 4
	RiskLow    = "LOW"
)

// RiskLevelFor maps a final ambiguity score to a risk bucket
func RiskLevelFor(score float64) string {
	switch {
	case score >= 7:
		return RiskHigh
	case score >= 4:
		return RiskMedium
	default:
		return RiskLow
	}
}

// EmotionLabels is the fixed set of primary emotion labels
var EmotionLabels = []string{
	"neutral", "joy", "anger", "sadness", "fear", "surprise", "confusion", "passive-aggressive",
}

// ValidEmotion reports whether label is one of the fixed primary emotions
func ValidEmotion(label string) bool {
	for _, l := range EmotionLabels {
		if l == label {
			return true
		}
	}
	return false
}
