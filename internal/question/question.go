// Package question maps generated signals to clarification prompts
// sent back to the supplier. One prompt per signal, selected by signal
// type; the mapping is total over the type enum and degrades to a
// generic prompt for anything it does not recognize.
package question

import (
	"fmt"

	"github.com/meridian-sourcing/procure-cli/internal/model"
)

const genericPrompt = "Please clarify and provide supporting evidence."

// FromSignals returns one clarification prompt per signal, in the same
// order. An unrecognized signal type never fails the batch; it yields
// the generic prompt.
func FromSignals(signals []model.Signal) []string {
	prompts := make([]string, len(signals))
	for i, s := range signals {
		prompts[i] = forSignal(s)
	}
	return prompts
}

func forSignal(s model.Signal) string {
	switch s.Type {
	case model.SignalAbsence:
		return fmt.Sprintf("Please provide evidence for: %s", s.Description)
	case model.SignalCompression:
		return "Please explain how pricing is achieved relative to benchmark (scope, assumptions, substitutions, exclusions)."
	case model.SignalMisalignment:
		return "Please explain how this is achieved operationally and provide downstream evidence (partners/processors/facilities)."
	case model.SignalContradiction:
		return "Please clarify the discrepancy between ingredient/positioning statements and provide the controlling specification."
	default:
		return genericPrompt
	}
}
