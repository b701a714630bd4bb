package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/meridian-sourcing/procure-cli/internal/model"
)

// Reserved file ids for synthetic evidence refs.
const (
	priceFileID      = "price"
	submissionFileID = "submission"
)

// GenerateInput is everything the signal rules read: the bid's
// benchmark and required certifications, the supplier's declared price,
// and the evidence snippets shared on the submission. Nil price or
// benchmark means the price rule does not apply.
type GenerateInput struct {
	BenchmarkAvgPrice      *float64
	SupplierPrice          *float64
	RequiredCertifications []string
	Snippets               []model.EvidenceSnippet
}

// Generate evaluates every detection rule against the input and returns
// the signals in rule order: compression, absence (one per missing
// certification), misalignment, contradiction. Output order is the
// evaluation order, not severity order, and is stable for identical
// inputs. A prior generation for the same submission is fully replaced
// by the caller, never merged.
func Generate(in GenerateInput, cfg RuleConfig) []model.Signal {
	combined := combinedText(in.Snippets)

	var signals []model.Signal

	// Compression: price materially below benchmark.
	if in.BenchmarkAvgPrice != nil && *in.BenchmarkAvgPrice > 0 && in.SupplierPrice != nil &&
		*in.SupplierPrice < *in.BenchmarkAvgPrice*cfg.CompressionThreshold {
		signals = append(signals, model.Signal{
			Type:        model.SignalCompression,
			Severity:    cfg.CompressionSeverity,
			Description: "Price is significantly below benchmark (requires verification of assumptions and scope).",
			EvidenceRefs: []model.EvidenceRef{{
				FileID:  priceFileID,
				Excerpt: fmt.Sprintf("Price %s vs benchmark %s", formatPrice(*in.SupplierPrice), formatPrice(*in.BenchmarkAvgPrice)),
			}},
		})
	}

	// Absence: one signal per required certification missing from the
	// combined evidence text. The neutral excerpt keeps the invariant
	// that absence signals always carry at least one evidence ref.
	for _, cert := range in.RequiredCertifications {
		if strings.Contains(combined, strings.ToLower(cert)) {
			continue
		}
		signals = append(signals, model.Signal{
			Type:        model.SignalAbsence,
			Severity:    cfg.AbsenceSeverity,
			Description: fmt.Sprintf("Missing certification reference: %s (requires verification).", cert),
			EvidenceRefs: []model.EvidenceRef{{
				FileID:  submissionFileID,
				Excerpt: "Certification not found in submitted evidence text.",
			}},
		})
	}

	// Misalignment: zero-landfill claim with no operational detail.
	if containsAny(combined, cfg.ZeroLandfillPhrases) && !containsAny(combined, cfg.OperationalDetailKeywords) {
		signals = append(signals, model.Signal{
			Type:         model.SignalMisalignment,
			Severity:     cfg.MisalignmentSeverity,
			Description:  "Zero-landfill claim lacks operational detail (processor/partner/facility chain).",
			EvidenceRefs: firstMatch(in.Snippets, cfg.ExcerptLimit, cfg.ZeroLandfillPhrases),
		})
	}

	// Contradiction: palm-free claim alongside blend language.
	if containsAny(combined, cfg.PalmFreePhrases) && containsAny(combined, cfg.BlendPhrases) {
		signals = append(signals, model.Signal{
			Type:         model.SignalContradiction,
			Severity:     cfg.ContradictionSeverity,
			Description:  "Inconsistent ingredient positioning (palm-free vs blend language). Requires clarification.",
			EvidenceRefs: firstMatch(in.Snippets, cfg.ExcerptLimit, append(cfg.PalmFreePhrases, cfg.BlendPhrases...)),
		})
	}

	return signals
}

// Summary is the one-line verdict recorded with a generation batch.
func Summary(signals []model.Signal) string {
	if len(signals) == 0 {
		return "No exposures surfaced from submitted evidence."
	}
	return "Exposures surfaced that require verification before decision."
}

// combinedText joins all snippet texts with newlines and lowercases the
// result. Rules fire on overlapping text across snippets, not
// per-snippet.
func combinedText(snippets []model.EvidenceSnippet) string {
	parts := make([]string, len(snippets))
	for i, s := range snippets {
		parts[i] = s.Text
	}
	return strings.ToLower(strings.Join(parts, "\n"))
}

// containsAny reports whether the (already lowercased) haystack
// contains any of the needles, case-insensitively.
func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// firstMatch returns an evidence ref for the first snippet containing
// any of the phrases, with the excerpt truncated to limit bytes.
// Returns nil when no snippet matches.
func firstMatch(snippets []model.EvidenceSnippet, limit int, phrases []string) []model.EvidenceRef {
	for _, s := range snippets {
		if !containsAny(strings.ToLower(s.Text), phrases) {
			continue
		}
		excerpt := s.Text
		if limit > 0 && len(excerpt) > limit {
			excerpt = excerpt[:limit]
		}
		return []model.EvidenceRef{{FileID: s.FileID, ChunkID: s.ChunkID, Excerpt: excerpt}}
	}
	return nil
}

// formatPrice renders a price without trailing zeros, matching how the
// values were declared rather than forcing a fixed precision.
func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
