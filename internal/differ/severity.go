package differ

import (
	"fmt"
	"strings"

	"github.com/wI2L/jsondiff"
)

// SeverityLevel 0=safe, 1=mod, 2=crit
type SeverityLevel int

const (
	SeveritySafe SeverityLevel = iota
	SeverityModerate
	SeverityCritical
)

var severityNames = map[SeverityLevel]string{
	SeveritySafe:     "info",
	SeverityModerate: "moderate",
	SeverityCritical: "critical",
}

func (s SeverityLevel) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseSeverity accepts the names String returns; "safe" is an alias of info
func ParseSeverity(name string) (SeverityLevel, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "safe" {
		return SeveritySafe, nil
	}
	for level, n := range severityNames {
		if n == name {
			return level, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q (use critical, moderate or info)", name)
}

// OperationSeverity grades one patch operation. Adding, removing or
// retyping a rule changes which packages pass; wording changes do not.
func OperationSeverity(op jsondiff.Operation) SeverityLevel {
	tokens := pointerTokens(op.Path)
	if len(tokens) < 2 {
		return SeverityCritical
	}
	switch tokens[1] {
	case "kind", "expr":
		return SeverityCritical
	case "failure_msg", "description":
		return SeveritySafe
	default:
		return SeverityModerate
	}
}

// Highest is the most severe change in the result, SeveritySafe when empty
func (r *DiffResult) Highest() SeverityLevel {
	highest := SeveritySafe
	for _, d := range r.RuleDiffs {
		if d.Severity > highest {
			highest = d.Severity
		}
	}
	return highest
}
