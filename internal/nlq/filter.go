package nlq

import "github.com/meridian-sourcing/procure-cli/internal/model"

// Match reports whether a submission satisfies every populated
// constraint dimension. Empty dimensions match everything; within the
// origin dimension the EU / Non-EU macro-labels are resolved against
// the fixed EU-country list, while explicit countries match exactly.
func (c Constraints) Match(sub model.Submission) bool {
	if len(c.Categories) > 0 && !containsString(c.Categories, sub.Category) {
		return false
	}
	if len(c.Commodities) > 0 && !containsString(c.Commodities, sub.Commodity) {
		return false
	}
	if len(c.RiskThemes) > 0 && !intersects(c.RiskThemes, sub.RiskThemes) {
		return false
	}

	if len(c.Origins) > 0 {
		isEU := euCountries[sub.Origin]
		if containsString(c.Origins, "EU") && !isEU {
			return false
		}
		if containsString(c.Origins, "Non-EU") && isEU {
			return false
		}
		var explicit []string
		for _, o := range c.Origins {
			if o != "EU" && o != "Non-EU" {
				explicit = append(explicit, o)
			}
		}
		if len(explicit) > 0 && !containsString(explicit, sub.Origin) {
			return false
		}
	}

	if len(c.Readiness) > 0 && !containsReadiness(c.Readiness, sub.Readiness) {
		return false
	}

	if !c.Since.IsZero() && sub.UpdatedAt.Before(c.Since) {
		return false
	}

	return true
}

// Filter returns the submissions satisfying the constraints, preserving
// input order.
func Filter(subs []model.Submission, c Constraints) []model.Submission {
	var out []model.Submission
	for _, s := range subs {
		if c.Match(s) {
			out = append(out, s)
		}
	}
	return out
}

func containsString(haystack []string, v string) bool {
	for _, h := range haystack {
		if h == v {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, v := range a {
		if containsString(b, v) {
			return true
		}
	}
	return false
}
