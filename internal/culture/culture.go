// Package culture holds the static cultural multiplier table: a per-language
// weighting of raw ambiguity scores that accounts for directness norms.
// The table is loaded once at startup and read-only for the process lifetime.
package culture

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/clearword/misread/internal/models"
)

//go:embed multipliers.yaml
var multipliersYAML []byte

// NeutralFactor is returned for language codes the table does not know
const NeutralFactor = 1.0

const (
	defaultCulture   = "US"
	defaultFormality = "neutral"
)

type entry struct {
	Culture   string  `yaml:"culture"`
	Factor    float64 `yaml:"factor"`
	Formality string  `yaml:"formality"`
}

type tableFile struct {
	Multipliers map[string]entry `yaml:"multipliers"`
}

// Table maps language codes to cultural weighting factors.
// Immutable after Load; safe for concurrent reads.
type Table struct {
	entries map[string]entry
}

// Load parses the embedded multiplier table
func Load() (*Table, error) {
	return load(multipliersYAML)
}

func load(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse multiplier table: %w", err)
	}
	if len(file.Multipliers) == 0 {
		return nil, fmt.Errorf("multiplier table is empty")
	}

	for code, e := range file.Multipliers {
		if e.Factor < 0.5 || e.Factor > 1.5 {
			return nil, fmt.Errorf("multiplier for %q out of range: %v", code, e.Factor)
		}
	}

	return &Table{entries: file.Multipliers}, nil
}

// MultiplierFor returns the cultural weighting factor for a language code.
// Total: unknown codes return the neutral default, there is no failure mode.
func (t *Table) MultiplierFor(code string) float64 {
	if e, ok := t.entries[code]; ok {
		return e.Factor
	}
	return NeutralFactor
}

// ContextFor returns the cultural context for a language code, defaulting to
// a neutral US context for unknown codes.
func (t *Table) ContextFor(code string) models.CulturalContext {
	if e, ok := t.entries[code]; ok {
		return models.CulturalContext{
			CultureCode: e.Culture,
			Formality:   e.Formality,
			Multiplier:  e.Factor,
		}
	}
	return models.CulturalContext{
		CultureCode: defaultCulture,
		Formality:   defaultFormality,
		Multiplier:  NeutralFactor,
	}
}

// Languages returns the codes the table knows, for reporting
func (t *Table) Languages() []string {
	codes := make([]string, 0, len(t.entries))
	for code := range t.entries {
		codes = append(codes, code)
	}
	return codes
}
