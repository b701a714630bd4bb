// Package engine implements the rule-based signal generator: it turns a
// supplier's price and submitted evidence text into typed exposure
// signals by deterministic substring matching against fixed keyword
// sets. No NLP, no network, no state — same inputs, same signals.
package engine

import "github.com/meridian-sourcing/procure-cli/internal/model"

// RuleConfig carries the tunable constants for each detection rule.
// Severities are configuration, not literals in the rules, so they can
// be adjusted without touching detection logic.
type RuleConfig struct {
	// CompressionThreshold is the benchmark multiplier below which a
	// price counts as compressed. 0.9 means ≥10% under benchmark.
	CompressionThreshold float64 `yaml:"compression_threshold" mapstructure:"compression_threshold"`

	// ExcerptLimit caps evidence excerpts, in bytes.
	ExcerptLimit int `yaml:"excerpt_limit" mapstructure:"excerpt_limit"`

	CompressionSeverity   model.Severity `yaml:"compression_severity" mapstructure:"compression_severity"`
	AbsenceSeverity       model.Severity `yaml:"absence_severity" mapstructure:"absence_severity"`
	MisalignmentSeverity  model.Severity `yaml:"misalignment_severity" mapstructure:"misalignment_severity"`
	ContradictionSeverity model.Severity `yaml:"contradiction_severity" mapstructure:"contradiction_severity"`

	// ZeroLandfillPhrases trigger the misalignment rule when none of
	// OperationalDetailKeywords back the claim up.
	ZeroLandfillPhrases       []string `yaml:"zero_landfill_phrases" mapstructure:"zero_landfill_phrases"`
	OperationalDetailKeywords []string `yaml:"operational_detail_keywords" mapstructure:"operational_detail_keywords"`

	// PalmFreePhrases together with BlendPhrases trigger the
	// contradiction rule.
	PalmFreePhrases []string `yaml:"palm_free_phrases" mapstructure:"palm_free_phrases"`
	BlendPhrases    []string `yaml:"blend_phrases" mapstructure:"blend_phrases"`
}

// DefaultRuleConfig returns the rule constants the detection pipeline
// ships with.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		CompressionThreshold: 0.9,
		ExcerptLimit:         280,

		CompressionSeverity:   model.SeverityMedium,
		AbsenceSeverity:       model.SeverityHigh,
		MisalignmentSeverity:  model.SeverityMedium,
		ContradictionSeverity: model.SeverityHigh,

		ZeroLandfillPhrases: []string{"zero landfill", "landfill-free"},
		OperationalDetailKeywords: []string{
			"processor", "partner", "facility", "chain of custody",
			"custody", "trace", "traceability",
		},
		PalmFreePhrases: []string{"palm-free", "palm free"},
		BlendPhrases:    []string{"vegetable oil blend", "blend"},
	}
}
