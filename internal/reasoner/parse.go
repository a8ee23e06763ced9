package reasoner

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/clearword/misread/internal/models"
)

// rawJudgment is the wire shape of the LLM response. Misunderstandings may
// arrive as structured objects or as bare strings, so they decode lazily.
type rawJudgment struct {
	PrimaryEmotion   string            `json:"primary_emotion"`
	Intensity        *float64          `json:"intensity"`
	HiddenFeelings   string            `json:"hidden_feelings"`
	ToneMarkers      []string          `json:"tone_markers"`
	EmotionsDetected []string          `json:"emotions_detected"`
	AmbiguityScore   *float64          `json:"ambiguity_score"`
	Misunderstands   []json.RawMessage `json:"misunderstandings"`
	ImprovedVersion  string            `json:"improved_version"`
}

var (
	ambiguityPattern = regexp.MustCompile(`"ambiguity_score"\s*:\s*([0-9]+(?:\.[0-9]+)?)`)
	emotionPattern   = regexp.MustCompile(`"primary_emotion"\s*:\s*"([a-z-]+)"`)
	improvedPattern  = regexp.MustCompile(`"improved_version"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// parseJudgment turns raw LLM output into a ReasoningJudgment. The content is
// not guaranteed well-formed: markdown fences are stripped, the JSON object is
// located inside surrounding prose, and if strict decoding still fails a
// key-scan pass salvages whatever fields it can. A judgment with all fields
// absent plus models.ErrMalformedResponse is the total-failure outcome.
func parseJudgment(content string) (models.ReasoningJudgment, error) {
	payload := extractJSONObject(stripFences(content))
	if payload == "" {
		return scanJudgment(content)
	}

	var raw rawJudgment
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return scanJudgment(content)
	}

	judgment := models.ReasoningJudgment{
		Emotion:          normalizeEmotion(raw.PrimaryEmotion),
		Intensity:        clampPtr(raw.Intensity, 0, 10),
		HiddenFeelings:   strings.TrimSpace(raw.HiddenFeelings),
		ToneMarkers:      raw.ToneMarkers,
		EmotionsDetected: raw.EmotionsDetected,
		RawAmbiguity:     clampPtr(raw.AmbiguityScore, 0, 10),
		Misunderstands:   decodeMisunderstandings(raw.Misunderstands),
		ImprovedVersion:  strings.Trim(strings.TrimSpace(raw.ImprovedVersion), `"'`),
	}

	if judgment.ToneMarkers == nil {
		judgment.ToneMarkers = []string{}
	}
	if judgment.EmotionsDetected == nil {
		judgment.EmotionsDetected = []string{}
	}

	return judgment, nil
}

// scanJudgment is the best-effort extraction for responses that are not valid
// JSON: a key scan recovers the score, emotion and rewrite if they appear.
func scanJudgment(content string) (models.ReasoningJudgment, error) {
	judgment := models.ReasoningJudgment{
		ToneMarkers:      []string{},
		EmotionsDetected: []string{},
	}
	found := false

	if m := ambiguityPattern.FindStringSubmatch(content); m != nil {
		if score, err := strconv.ParseFloat(m[1], 64); err == nil {
			judgment.RawAmbiguity = clampPtr(&score, 0, 10)
			found = true
		}
	}
	if m := emotionPattern.FindStringSubmatch(content); m != nil {
		judgment.Emotion = normalizeEmotion(m[1])
		found = judgment.Emotion != "" || found
	}
	if m := improvedPattern.FindStringSubmatch(content); m != nil {
		judgment.ImprovedVersion = m[1]
		found = true
	}

	if !found {
		return judgment, fmt.Errorf("reasoner: no judgment fields in response: %w", models.ErrMalformedResponse)
	}
	return judgment, nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag, as LLMs frequently add one despite instructions.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	parts := strings.SplitN(content, "```", 3)
	if len(parts) < 2 {
		return content
	}
	inner := parts[1]
	inner = strings.TrimPrefix(inner, "json")
	return strings.TrimSpace(inner)
}

// extractJSONObject returns the outermost {...} slice of content, or ""
func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

// decodeMisunderstandings accepts either structured objects or bare strings,
// caps the list, and clamps likelihoods into [1,10].
func decodeMisunderstandings(raws []json.RawMessage) []models.Misunderstanding {
	out := make([]models.Misunderstanding, 0, len(raws))
	for _, r := range raws {
		if len(out) >= MaxMisunderstandings {
			break
		}

		var m models.Misunderstanding
		if err := json.Unmarshal(r, &m); err == nil && m.Meaning != "" {
			if m.Likelihood < 1 {
				m.Likelihood = 1
			}
			if m.Likelihood > 10 {
				m.Likelihood = 10
			}
			out = append(out, m)
			continue
		}

		var s string
		if err := json.Unmarshal(r, &s); err == nil && strings.TrimSpace(s) != "" {
			out = append(out, models.Misunderstanding{Meaning: strings.TrimSpace(s), Likelihood: 5})
		}
	}
	return out
}

// normalizeEmotion lowercases the label and rejects anything outside the
// fixed set; unknown labels count as absent.
func normalizeEmotion(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	if models.ValidEmotion(label) {
		return label
	}
	return ""
}

// clampPtr bounds *v into [lo,hi], passing nil through
func clampPtr(v *float64, lo, hi float64) *float64 {
	if v == nil {
		return nil
	}
	clamped := *v
	if clamped < lo {
		clamped = lo
	}
	if clamped > hi {
		clamped = hi
	}
	return &clamped
}
