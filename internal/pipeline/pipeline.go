// Package pipeline implements the analysis orchestrator: the strictly
// ordered sequence validate -> detect -> normalize -> reason -> adjust ->
// assemble over one request. Each stage soft-fails independently into a
// flagged default; only invalid input and reasoning-service auth failures
// abort a run. A degraded answer always beats a hard error here.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clearword/misread/internal/culture"
	"github.com/clearword/misread/internal/models"
	"github.com/clearword/misread/internal/reasoner"
	"github.com/clearword/misread/internal/tracing"
	"github.com/clearword/misread/internal/translator"
)

const (
	// DefaultMaxTextLen bounds input length to bound downstream API cost
	DefaultMaxTextLen = 2000

	// DefaultWorkingLang is the language the reasoning prompts expect
	DefaultWorkingLang = "en"

	// DefaultAmbiguity is the "could not assess" score used when the
	// reasoning stage produced no usable ambiguity value
	DefaultAmbiguity = 5.0
)

// Degradation reasons recorded on results when a stage soft-failed
const (
	ReasonTranslationUnavailable  = "translation_unavailable"
	ReasonReasoningUnavailable    = "reasoning_unavailable"
	ReasonAmbiguityDefaulted      = "ambiguity_defaulted"
	ReasonEmotionDefaulted        = "emotion_defaulted"
	ReasonImprovementDefaulted    = "improvement_defaulted"
	ReasonImprovementUntranslated = "improvement_translation_unavailable"
)

// Detector produces a language guess for raw text
type Detector interface {
	Detect(text string) (models.DetectedLanguage, error)
}

// Config carries the pipeline's tunables; zero values select the defaults
type Config struct {
	WorkingLang      string
	MaxTextLen       int
	DefaultAmbiguity float64
}

// Pipeline runs the analysis sequence. All collaborators are read-only after
// construction, so one Pipeline serves any number of concurrent requests.
type Pipeline struct {
	detector   Detector
	translator translator.Translator
	reasoner   reasoner.Reasoner
	table      *culture.Table
	cfg        Config
}

// New constructs a Pipeline over explicit collaborators. Tests substitute
// deterministic fakes for the translator and reasoner interfaces.
func New(det Detector, tr translator.Translator, re reasoner.Reasoner, table *culture.Table, cfg Config) *Pipeline {
	if cfg.WorkingLang == "" {
		cfg.WorkingLang = DefaultWorkingLang
	}
	if cfg.MaxTextLen <= 0 {
		cfg.MaxTextLen = DefaultMaxTextLen
	}
	if cfg.DefaultAmbiguity <= 0 {
		cfg.DefaultAmbiguity = DefaultAmbiguity
	}
	return &Pipeline{
		detector:   det,
		translator: tr,
		reasoner:   re,
		table:      table,
		cfg:        cfg,
	}
}

// run-local accumulator for soft-failure bookkeeping
type runState struct {
	reasons []string
}

func (s *runState) degrade(stage, reason string) {
	stageDegradations.WithLabelValues(stage).Inc()
	s.reasons = append(s.reasons, reason)
}

// Run executes the full pipeline for one request.
//
// Errors returned wrap models.ErrInvalidInput (client fault) or
// models.ErrExternalAuth (configuration fault); every other failure mode is
// absorbed into a degraded but complete AnalysisResult.
func (p *Pipeline) Run(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "pipeline.run")
	defer span.End()

	state := &runState{}

	// Stage 1: validate
	text, err := p.validate(req.Text)
	if err != nil {
		analysesTotal.WithLabelValues("invalid_input").Inc()
		return nil, err
	}
	tracing.SetSpanAttributes(ctx, attribute.Int("text.length", len(text)))

	// Stage 2: detect
	lang, err := p.detector.Detect(text)
	if err != nil {
		// The detector only fails on empty input, which validate already
		// rejected; treat anything else as fatal input handling
		analysesTotal.WithLabelValues("invalid_input").Inc()
		return nil, fmt.Errorf("detect stage: %w", err)
	}
	slog.Debug("language detected", "code", lang.Code, "confidence", lang.Confidence)

	// Stage 3: normalize
	normalized := p.normalize(ctx, text, lang, state)

	// Stage 4: reason
	judgment, err := p.reason(ctx, normalized, state)
	if err != nil {
		analysesTotal.WithLabelValues("auth_error").Inc()
		return nil, err
	}

	// Stage 5: adjust
	score, factor := p.adjust(lang.Code, judgment, state)

	// Stage 6: assemble
	result := p.assemble(ctx, req, text, lang, normalized, judgment, score, factor, state)

	outcome := "ok"
	if result.Degraded {
		outcome = "degraded"
	}
	analysesTotal.WithLabelValues(outcome).Inc()
	analysisDuration.Observe(time.Since(start).Seconds())

	slog.Info("analysis complete",
		"id", result.ID,
		"language", lang.Code,
		"ambiguity_score", result.AmbiguityScore,
		"risk", result.RiskLevel,
		"degraded", result.Degraded,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

// validate enforces the non-empty and length-bounded input invariants
func (p *Pipeline) validate(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("validate stage: empty text: %w", models.ErrInvalidInput)
	}
	if len(trimmed) > p.cfg.MaxTextLen {
		return "", fmt.Errorf("validate stage: text exceeds %d bytes: %w", p.cfg.MaxTextLen, models.ErrInvalidInput)
	}
	return trimmed, nil
}

// normalize translates the input into the working language when needed.
// Identity inputs skip the translator entirely; a translation soft failure
// keeps the original text under reduced semantic normalization.
func (p *Pipeline) normalize(ctx context.Context, text string, lang models.DetectedLanguage, state *runState) string {
	if lang.Code == p.cfg.WorkingLang {
		return text
	}

	ctx, span := tracing.StartSpan(ctx, "pipeline.normalize")
	defer span.End()

	res := p.translator.Translate(ctx, text, lang.Code, p.cfg.WorkingLang)
	if res.Fallback {
		state.degrade("normalize", ReasonTranslationUnavailable)
		return text
	}
	return res.TranslatedText
}

// reason invokes the reasoning service. Auth failures abort; everything else
// collapses into an absent judgment plus a degradation flag.
func (p *Pipeline) reason(ctx context.Context, text string, state *runState) (models.ReasoningJudgment, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.reason")
	defer span.End()

	judgment, err := p.reasoner.Analyze(ctx, text)
	if err != nil {
		if errors.Is(err, models.ErrExternalAuth) {
			return models.ReasoningJudgment{}, fmt.Errorf("reason stage: %w", err)
		}
		slog.Warn("reasoning stage degraded", "error", err)
		state.degrade("reason", ReasonReasoningUnavailable)
		return models.ReasoningJudgment{}, nil
	}
	return judgment, nil
}

// adjust applies the cultural multiplier to the raw ambiguity and clamps the
// product into [0,10]. An absent raw score falls back to the configured
// default, flagged: total reasoning failure means "could not assess", not an
// aborted request.
func (p *Pipeline) adjust(langCode string, judgment models.ReasoningJudgment, state *runState) (score, factor float64) {
	factor = p.table.MultiplierFor(langCode)

	if judgment.RawAmbiguity == nil {
		state.degrade("adjust", ReasonAmbiguityDefaulted)
		return roundScore(p.cfg.DefaultAmbiguity), factor
	}

	adjusted := *judgment.RawAmbiguity * factor
	if adjusted < 0 {
		adjusted = 0
	}
	if adjusted > 10 {
		adjusted = 10
	}
	return roundScore(adjusted), factor
}

// assemble merges everything into the final immutable result, defaulting the
// judgment fields the reasoning stage left absent.
func (p *Pipeline) assemble(ctx context.Context, req models.AnalysisRequest, text string,
	lang models.DetectedLanguage, normalized string, judgment models.ReasoningJudgment,
	score, factor float64, state *runState) *models.AnalysisResult {

	emotion := judgment.Emotion
	if emotion == "" {
		emotion = "neutral"
		state.degrade("assemble", ReasonEmotionDefaulted)
	}

	intensity := 5.0
	if judgment.Intensity != nil {
		intensity = *judgment.Intensity
	}

	improved := judgment.ImprovedVersion
	if improved == "" {
		improved = text
		state.degrade("assemble", ReasonImprovementDefaulted)
	} else {
		improved = p.renderImproved(ctx, improved, req.TargetLanguage, lang.Code, state)
	}

	details := judgment.Misunderstands
	if details == nil {
		details = []models.Misunderstanding{}
	}
	summaries := make([]string, len(details))
	for i, m := range details {
		summaries[i] = m.Meaning
	}

	toneMarkers := judgment.ToneMarkers
	if toneMarkers == nil {
		toneMarkers = []string{}
	}
	emotionsDetected := judgment.EmotionsDetected
	if emotionsDetected == nil {
		emotionsDetected = []string{}
	}

	cultural := p.table.ContextFor(lang.Code)

	return &models.AnalysisResult{
		ID:           uuid.NewString(),
		OriginalText: text,
		Language:     lang,

		TranslatedText: normalized,

		Emotion:          emotion,
		Intensity:        intensity,
		HiddenFeelings:   judgment.HiddenFeelings,
		ToneMarkers:      toneMarkers,
		EmotionsDetected: emotionsDetected,

		AmbiguityScore:     score,
		RiskLevel:          models.RiskLevelFor(score),
		ClarityImprovement: clarityImprovement(score),

		Misunderstandings:       summaries,
		MisunderstandingDetails: details,
		ImprovedVersion:         improved,

		CulturalContext: cultural,

		Degraded:        len(state.reasons) > 0,
		DegradedReasons: state.reasons,

		Timestamp: time.Now().UTC(),
	}
}

// renderImproved translates the rewrite back into the requested language
// (or the detected source language) when it differs from the working
// language. Soft failure keeps the working-language rewrite.
func (p *Pipeline) renderImproved(ctx context.Context, improved, targetLang, detectedLang string, state *runState) string {
	backLang := targetLang
	if backLang == "" {
		backLang = detectedLang
	}
	if backLang == p.cfg.WorkingLang {
		return improved
	}

	res := p.translator.Translate(ctx, improved, p.cfg.WorkingLang, backLang)
	if res.Fallback {
		state.degrade("assemble", ReasonImprovementUntranslated)
		return improved
	}
	return res.TranslatedText
}

// clarityImprovement estimates the percent clarity gain of the rewrite
func clarityImprovement(score float64) int {
	gain := int((10 - score) * 10)
	if gain > 95 {
		gain = 95
	}
	if gain < 0 {
		gain = 0
	}
	return gain
}

// roundScore rounds to one decimal place, applied after clamping
func roundScore(score float64) float64 {
	return math.Round(score*10) / 10
}

// Healthy reports liveness: true once the pipeline is constructed
func (p *Pipeline) Healthy() bool {
	return p.detector != nil && p.reasoner != nil && p.table != nil
}
