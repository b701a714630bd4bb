// Package nlq interprets free-text monitor queries into structured
// constraints. Matching is deterministic, case-insensitive substring
// search against fixed vocabularies; there is no tokenization, fuzzing,
// or model inference. Short ambiguous tokens ("eu", tier colors) are
// matched on word boundaries so they do not fire inside longer words
// such as "EUDR" or "ingredients".
package nlq

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/meridian-sourcing/procure-cli/internal/model"
)

// Constraints is the structured form of a monitor query. Empty slices
// leave the corresponding dimension unconstrained; a zero Since means
// no recency cutoff.
type Constraints struct {
	Categories  []string          `json:"categories"`
	Commodities []string          `json:"commodities"`
	RiskThemes  []string          `json:"risk_themes"`
	Origins     []string          `json:"origins"`
	Readiness   []model.Readiness `json:"readiness"`
	Since       time.Time         `json:"since,omitzero"`
	Raw         string            `json:"raw"`
}

// Parse interprets a free-text query against the fixed vocabularies.
// The reference clock is an argument so the three recency phrases stay
// testable; callers pass time.Now().
func Parse(raw string, now time.Time) Constraints {
	q := strings.ToLower(strings.TrimSpace(raw))
	titled := cases.Title(language.English)

	c := Constraints{Raw: raw}

	for _, commodity := range commodities {
		if !strings.Contains(q, commodity) {
			continue
		}
		label, ok := commodityLabels[commodity]
		if !ok {
			label = titled.String(commodity)
		}
		c.Commodities = appendUnique(c.Commodities, label)
	}

	wantsNonEU := strings.Contains(q, "outside eu") || strings.Contains(q, "non-eu")
	for _, origin := range origins {
		switch origin {
		case "eu":
			// Bare "eu" is a word match, and an explicit non-EU phrase
			// overrides it.
			if wantsNonEU || !containsWord(q, "eu") {
				continue
			}
		default:
			if !strings.Contains(q, origin) {
				continue
			}
		}
		label, ok := originLabels[origin]
		if !ok {
			label = titled.String(origin)
		}
		c.Origins = appendUnique(c.Origins, label)
	}

	for _, th := range themes {
		if strings.Contains(q, th.keyword) {
			c.RiskThemes = appendUnique(c.RiskThemes, th.label)
		}
	}

	for _, r := range readinessTokens {
		matched := false
		if strings.ContainsAny(r.token, " -") {
			matched = strings.Contains(q, r.token)
		} else {
			matched = containsWord(q, r.token)
		}
		if matched && !containsReadiness(c.Readiness, r.tier) {
			c.Readiness = append(c.Readiness, r.tier)
		}
	}

	c.Categories = inferCategories(q, c.Commodities)
	c.Since = parseSince(q, now)

	return c
}

// inferCategories derives category constraints from keywords that imply
// a category even when the category word itself never appears.
func inferCategories(q string, matchedCommodities []string) []string {
	var cats []string
	if strings.Contains(q, "electronics") || strings.Contains(q, "tesco mobile") || strings.Contains(q, "battery") {
		cats = appendUnique(cats, "Electronics")
	}
	if strings.Contains(q, "packaging") {
		cats = appendUnique(cats, "Packaging")
	}
	if strings.Contains(q, "own brand") || strings.Contains(q, "private label") {
		cats = appendUnique(cats, "Own Brand")
	}
	if strings.Contains(q, "ingredients") || len(matchedCommodities) > 0 {
		cats = appendUnique(cats, "Ingredients")
	}
	return cats
}

// parseSince recognizes the three supported recency phrases. Anything
// else yields the zero time (unrestricted).
func parseSince(q string, now time.Time) time.Time {
	switch {
	case strings.Contains(q, "since jan 2026"), strings.Contains(q, "since january 2026"):
		return time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	case strings.Contains(q, "last 30d"), strings.Contains(q, "last 30 days"):
		return dateOnly(now.AddDate(0, 0, -30))
	case strings.Contains(q, "last 90d"), strings.Contains(q, "last 90 days"):
		return dateOnly(now.AddDate(0, 0, -90))
	}
	return time.Time{}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// containsWord reports whether w occurs in s bounded by non-alphanumeric
// characters on both sides.
func containsWord(s, w string) bool {
	for from := 0; ; {
		i := strings.Index(s[from:], w)
		if i < 0 {
			return false
		}
		i += from
		before := i == 0 || !isAlphanumeric(s[i-1])
		afterIdx := i + len(w)
		after := afterIdx >= len(s) || !isAlphanumeric(s[afterIdx])
		if before && after {
			return true
		}
		from = i + 1
	}
}

func isAlphanumeric(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func appendUnique(dst []string, v string) []string {
	for _, existing := range dst {
		if existing == v {
			return dst
		}
	}
	return append(dst, v)
}

func containsReadiness(dst []model.Readiness, v model.Readiness) bool {
	for _, existing := range dst {
		if existing == v {
			return true
		}
	}
	return false
}
