package reasoner

import (
	"errors"
	"strings"
	"testing"

	"github.com/clearword/misread/internal/models"
)

func TestParseJudgmentCleanJSON(t *testing.T) {
	content := `{
		"primary_emotion": "passive-aggressive",
		"intensity": 7.5,
		"hidden_feelings": "resentment about the decision",
		"tone_markers": ["sarcasm"],
		"emotions_detected": ["anger", "sadness"],
		"ambiguity_score": 6.5,
		"misunderstandings": [
			{"misunderstood_meaning": "sounds like agreement", "emotional_impact": "confusion", "likelihood": 8}
		],
		"improved_version": "I disagree with this plan, and here is why."
	}`

	j, err := parseJudgment(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if j.Emotion != "passive-aggressive" {
		t.Errorf("expected passive-aggressive, got %q", j.Emotion)
	}
	if j.RawAmbiguity == nil || *j.RawAmbiguity != 6.5 {
		t.Errorf("expected ambiguity 6.5, got %v", j.RawAmbiguity)
	}
	if j.Intensity == nil || *j.Intensity != 7.5 {
		t.Errorf("expected intensity 7.5, got %v", j.Intensity)
	}
	if len(j.Misunderstands) != 1 || j.Misunderstands[0].Likelihood != 8 {
		t.Errorf("unexpected misunderstandings %+v", j.Misunderstands)
	}
	if j.ImprovedVersion != "I disagree with this plan, and here is why." {
		t.Errorf("unexpected improved version %q", j.ImprovedVersion)
	}
}

func TestParseJudgmentMarkdownFenced(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"json fence", "```json\n{\"primary_emotion\": \"joy\", \"ambiguity_score\": 2.0}\n```"},
		{"bare fence", "```\n{\"primary_emotion\": \"joy\", \"ambiguity_score\": 2.0}\n```"},
		{"prose around object", "Here is the analysis you asked for:\n{\"primary_emotion\": \"joy\", \"ambiguity_score\": 2.0}\nHope this helps!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := parseJudgment(tt.content)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if j.Emotion != "joy" {
				t.Errorf("expected joy, got %q", j.Emotion)
			}
			if j.RawAmbiguity == nil || *j.RawAmbiguity != 2.0 {
				t.Errorf("expected ambiguity 2.0, got %v", j.RawAmbiguity)
			}
		})
	}
}

func TestParseJudgmentKeyScanFallback(t *testing.T) {
	// Truncated output: not valid JSON, but the keys are present
	content := `{"primary_emotion": "anger", "ambiguity_score": 8.5, "improved_version": "Let us talk directly", "misunderstandings": [`

	j, err := parseJudgment(content)
	if err != nil {
		t.Fatalf("key scan should have recovered fields, got error: %v", err)
	}

	if j.Emotion != "anger" {
		t.Errorf("expected anger, got %q", j.Emotion)
	}
	if j.RawAmbiguity == nil || *j.RawAmbiguity != 8.5 {
		t.Errorf("expected ambiguity 8.5, got %v", j.RawAmbiguity)
	}
	if j.ImprovedVersion != "Let us talk directly" {
		t.Errorf("expected improved version, got %q", j.ImprovedVersion)
	}
}

func TestParseJudgmentTotalFailure(t *testing.T) {
	for _, content := range []string{
		"I could not analyze this message, sorry.",
		"",
		"42",
	} {
		j, err := parseJudgment(content)
		if !errors.Is(err, models.ErrMalformedResponse) {
			t.Errorf("parseJudgment(%q): expected ErrMalformedResponse, got %v", content, err)
		}
		if !j.Empty() {
			t.Errorf("total failure must yield an empty judgment, got %+v", j)
		}
	}
}

func TestParseJudgmentClampsOutOfRangeValues(t *testing.T) {
	content := `{"primary_emotion": "fear", "ambiguity_score": 15.0, "intensity": -3.0}`

	j, err := parseJudgment(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if j.RawAmbiguity == nil || *j.RawAmbiguity != 10.0 {
		t.Errorf("expected ambiguity clamped to 10, got %v", j.RawAmbiguity)
	}
	if j.Intensity == nil || *j.Intensity != 0.0 {
		t.Errorf("expected intensity clamped to 0, got %v", j.Intensity)
	}
}

func TestParseJudgmentUnknownEmotionDropped(t *testing.T) {
	content := `{"primary_emotion": "hangry", "ambiguity_score": 4.0}`

	j, err := parseJudgment(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.Emotion != "" {
		t.Errorf("unknown emotion must count as absent, got %q", j.Emotion)
	}
}

func TestParseJudgmentStringMisunderstandings(t *testing.T) {
	content := `{"ambiguity_score": 5.0, "misunderstandings": ["could sound cold", "might read as anger"]}`

	j, err := parseJudgment(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(j.Misunderstands) != 2 {
		t.Fatalf("expected 2 misunderstandings, got %d", len(j.Misunderstands))
	}
	if j.Misunderstands[0].Meaning != "could sound cold" {
		t.Errorf("unexpected meaning %q", j.Misunderstands[0].Meaning)
	}
}

func TestParseJudgmentCapsMisunderstandings(t *testing.T) {
	items := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		items = append(items, `{"misunderstood_meaning": "reading `+strings.Repeat("x", i+1)+`", "likelihood": 12}`)
	}
	content := `{"ambiguity_score": 5.0, "misunderstandings": [` + strings.Join(items, ",") + `]}`

	j, err := parseJudgment(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(j.Misunderstands) != MaxMisunderstandings {
		t.Errorf("expected cap of %d, got %d", MaxMisunderstandings, len(j.Misunderstands))
	}
	for _, m := range j.Misunderstands {
		if m.Likelihood < 1 || m.Likelihood > 10 {
			t.Errorf("likelihood %d outside [1,10]", m.Likelihood)
		}
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"unterminated fence", "```json\n{\"a\":1}", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
