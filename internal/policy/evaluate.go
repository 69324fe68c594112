package policy

import (
	"github.com/pkgvet/pkgvet/internal/models"
)

// Evaluate checks metadata against every field rule of the state, in order.
// It never stops at the first failure and never returns an error: a missing
// field is a violation like any other.
func Evaluate(md *models.Metadata, state *State) models.ComplianceResult {
	violations := make([]string, 0)

	if state != nil {
		// built lazily, only expression rules need it
		var input map[string]interface{}

		for _, entry := range state.entries {
			values := FieldValues(md, entry.Field)

			if entry.Rule.kind == KindExpression && input == nil {
				input = metadataToMap(md)
			}

			if !entry.Rule.check(values, input) {
				violations = append(violations, entry.Rule.render(entry.Field, values))
			}
		}
	}

	return models.ComplianceResult{
		IsCompliant: len(violations) == 0,
		Violations:  violations,
	}
}
