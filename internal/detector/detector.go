// Package detector provides offline language detection for incoming text.
package detector

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"

	"github.com/clearword/misread/internal/models"
)

const (
	// MinDetectLength is the minimum trimmed length for a detection attempt.
	// Shorter text falls back to the default language with zero confidence.
	MinDetectLength = 6

	// MaxDetectLength bounds the text fed to the statistical models
	MaxDetectLength = 512

	DefaultLanguage = "en"
)

// languages limits detection to the codes the cultural multiplier table knows.
// A smaller candidate set also makes lingua considerably more accurate.
var languages = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Russian,
	lingua.Japanese,
	lingua.Chinese,
	lingua.Korean,
	lingua.Hindi,
	lingua.Arabic,
}

// Detector detects the language of short free-form text.
// Safe for concurrent use; detection is a pure function of the input.
type Detector struct {
	detector lingua.LanguageDetector
	fallback string
}

// New creates a Detector. fallbackLang is returned with zero confidence when
// the text is too short or detection is inconclusive; empty means "en".
func New(fallbackLang string) *Detector {
	if fallbackLang == "" {
		fallbackLang = DefaultLanguage
	}

	d := lingua.NewLanguageDetectorBuilder().
		FromLanguages(languages...).
		Build()

	return &Detector{detector: d, fallback: fallbackLang}
}

// Detect returns the best-guess language of text with a confidence signal.
// Empty input (after trimming) fails with models.ErrInvalidInput; every other
// input produces a result, falling back to the default code with confidence
// 0.0 rather than failing.
func (d *Detector) Detect(text string) (models.DetectedLanguage, error) {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return models.DetectedLanguage{}, fmt.Errorf("detect: empty text: %w", models.ErrInvalidInput)
	}

	if len(clean) < MinDetectLength {
		return models.DetectedLanguage{Code: d.fallback, Confidence: 0.0}, nil
	}

	if len(clean) > MaxDetectLength {
		clean = truncateOnRune(clean, MaxDetectLength)
	}

	language, ok := d.detector.DetectLanguageOf(clean)
	if !ok {
		return models.DetectedLanguage{Code: d.fallback, Confidence: 0.0}, nil
	}

	confidence := d.detector.ComputeLanguageConfidence(clean, language)

	return models.DetectedLanguage{
		Code:       isoCode(language),
		Confidence: confidence,
	}, nil
}

// isoCode maps a lingua language to its lowercase ISO 639-1 code
func isoCode(language lingua.Language) string {
	return strings.ToLower(language.IsoCode639_1().String())
}

// truncateOnRune cuts s to at most max bytes without splitting a rune
func truncateOnRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
