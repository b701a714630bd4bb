package nlq

import "github.com/meridian-sourcing/procure-cli/internal/model"

// Fixed vocabularies the interpreter matches against. These are static
// enumerated mappings; extending the interpreter means adding entries
// here.

// commodities in match order. Canonical labels are Title-cased, with
// "wood" folding into the combined Wood/Paper label.
var commodities = []string{
	"palm", "cocoa", "soy", "coffee", "beef", "wood", "paper",
	"lithium", "cobalt", "nickel",
}

var commodityLabels = map[string]string{
	"wood": "Wood/Paper",
}

// origins in match order. Short tokens like "eu" are matched on word
// boundaries so "EUDR" does not read as an EU constraint.
var origins = []string{
	"indonesia", "malaysia", "ivory coast", "ghana", "brazil",
	"dr congo", "congo", "china", "germany", "eu", "outside eu", "non-eu",
}

var originLabels = map[string]string{
	"ivory coast": "Ivory Coast",
	"dr congo":    "DR Congo",
	"congo":       "DR Congo",
	"eu":          "EU",
	"outside eu":  "Non-EU",
	"non-eu":      "Non-EU",
}

// euCountries resolves the EU / Non-EU macro-distinction when
// constraints are applied to submissions.
var euCountries = map[string]bool{
	"Ireland":     true,
	"Germany":     true,
	"France":      true,
	"Netherlands": true,
	"Spain":       true,
	"Italy":       true,
}

// themeEntry maps a query keyword to its canonical risk-theme label.
type themeEntry struct {
	keyword string
	label   string
}

// themes in match order. Multiple keywords may resolve to the same
// label (battery / battery passport).
var themes = []themeEntry{
	{"eudr", "EUDR"},
	{"deforestation", "Deforestation"},
	{"scope 3", "Scope 3"},
	{"cbam", "CBAM"},
	{"battery passport", "Battery Passport"},
	{"battery", "Battery Passport"},
	{"recycled content", "Recycled Content"},
	{"carbon footprint", "Carbon Footprint"},
	{"csrd", "CSRD"},
	{"nis2", "NIS2"},
	{"forced labour", "Forced Labour"},
	{"child labour", "Child Labour"},
}

// readinessEntry maps a query token to a readiness tier. Colors match
// the tier names; "high risk" language folds into the Red tier.
type readinessEntry struct {
	token string
	tier  model.Readiness
}

var readinessTokens = []readinessEntry{
	{"red", model.ReadinessRed},
	{"high-risk", model.ReadinessRed},
	{"high risk", model.ReadinessRed},
	{"orange", model.ReadinessOrange},
	{"yellow", model.ReadinessYellow},
	{"green", model.ReadinessGreen},
}
