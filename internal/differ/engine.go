// Package differ compares two compiled rulesets and explains the changes.
package differ

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pkgvet/pkgvet/internal/policy"
	"github.com/wI2L/jsondiff"
)

// DiffType indicates what kind of difference was detected
type DiffType string

const (
	DiffTypeAdded   DiffType = "added"
	DiffTypeRemoved DiffType = "removed"
	DiffTypeChanged DiffType = "changed"
)

// RuleDiff is the difference for one field rule
type RuleDiff struct {
	Field        string
	DiffType     DiffType
	Severity     SeverityLevel
	Patches      jsondiff.Patch
	Translations []string
}

// DiffResult contains the complete diff result
type DiffResult struct {
	HasChanges     bool
	OldTag         string
	NewTag         string
	OldFingerprint string
	NewFingerprint string
	RuleDiffs      []RuleDiff
}

// ruleView is the diffable form of a rule. Allowed entries are object keys
// so patches name the value that changed instead of an index.
type ruleView struct {
	Kind            string          `json:"kind"`
	Match           string          `json:"match,omitempty"`
	Allowed         map[string]bool `json:"allowed,omitempty"`
	CaseInsensitive bool            `json:"case_insensitive"`
	Optional        bool            `json:"optional"`
	Expr            string          `json:"expr,omitempty"`
	FailureMsg      string          `json:"failure_msg"`
	Description     string          `json:"description,omitempty"`
}

func viewOf(s *policy.State) map[string]ruleView {
	views := make(map[string]ruleView, s.Len())
	for _, e := range s.FieldRules() {
		r := e.Rule
		v := ruleView{
			Kind:            string(r.Kind()),
			CaseInsensitive: r.CaseInsensitive(),
			Optional:        r.Optional(),
			Expr:            r.Expr(),
			FailureMsg:      r.Template(),
			Description:     r.Description(),
		}
		if allowed := r.Allowed(); len(allowed) > 0 {
			v.Match = string(r.Match())
			v.Allowed = make(map[string]bool, len(allowed))
			for _, a := range allowed {
				v.Allowed[a] = true
			}
		}
		views[e.Field] = v
	}
	return views
}

// CompareStates diffs prev against next, rule by rule. Changed and added rules
// come in next's order, removed rules follow in prev's order.
func CompareStates(prev, next *policy.State) (*DiffResult, error) {
	if prev == nil || next == nil {
		return nil, errors.New("both rulesets are required")
	}

	patch, err := jsondiff.Compare(viewOf(prev), viewOf(next))
	if err != nil {
		return nil, fmt.Errorf("failed to compute ruleset diff: %w", err)
	}

	byField := make(map[string]jsondiff.Patch)
	for _, op := range patch {
		tokens := pointerTokens(op.Path)
		if len(tokens) == 0 {
			continue
		}
		byField[tokens[0]] = append(byField[tokens[0]], op)
	}

	result := &DiffResult{
		OldTag:         prev.Tag(),
		NewTag:         next.Tag(),
		OldFingerprint: prev.Fingerprint(),
		NewFingerprint: next.Fingerprint(),
		RuleDiffs:      []RuleDiff{},
	}

	var order []string
	for _, e := range next.FieldRules() {
		order = append(order, e.Field)
	}
	for _, e := range prev.FieldRules() {
		if _, ok := next.Rule(e.Field); !ok {
			order = append(order, e.Field)
		}
	}

	for _, field := range order {
		ops, ok := byField[field]
		if !ok {
			continue
		}
		sort.SliceStable(ops, func(i, j int) bool { return ops[i].Path < ops[j].Path })

		d := RuleDiff{
			Field:        field,
			DiffType:     DiffTypeChanged,
			Patches:      ops,
			Translations: Translate(ops),
		}
		_, inOld := prev.Rule(field)
		_, inNew := next.Rule(field)
		switch {
		case !inOld:
			d.DiffType = DiffTypeAdded
		case !inNew:
			d.DiffType = DiffTypeRemoved
		}
		for _, op := range ops {
			if s := OperationSeverity(op); s > d.Severity {
				d.Severity = s
			}
		}
		result.RuleDiffs = append(result.RuleDiffs, d)
	}

	result.HasChanges = len(result.RuleDiffs) > 0
	return result, nil
}
