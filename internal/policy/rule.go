package policy

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"golang.org/x/text/cases"
)

// RuleKind is the closed set of field rule kinds
type RuleKind string

const (
	KindExactMatch     RuleKind = "exact_match"
	KindRequiredPrefix RuleKind = "required_prefix"
	KindRequired       RuleKind = "required"
	KindExpression     RuleKind = "expression"
)

// MatchMode decides how multi-valued fields are checked
type MatchMode string

const (
	// MatchAny passes when at least one observed value satisfies the rule.
	MatchAny MatchMode = "any"
	// MatchAll passes only when every observed value satisfies the rule.
	MatchAll MatchMode = "all"
)

// placeholders understood by failure message templates
const (
	placeholderField   = "{field}"
	placeholderActual  = "{actual}"
	placeholderAllowed = "{allowed}"
	placeholderExpr    = "{expr}"
)

const missingValue = "<missing>"

var defaultTemplates = map[RuleKind]string{
	KindExactMatch:     "{field}: expected one of {allowed}, actual {actual}",
	KindRequiredPrefix: "{field}: must start with one of {allowed}, actual {actual}",
	KindRequired:       "{field}: required value is missing, actual {actual}",
	KindExpression:     "{field}: expression `{expr}` not satisfied, actual {actual}",
}

// FieldRule is one immutable compiled rule. Build it with Deserialize.
type FieldRule struct {
	kind            RuleKind
	allowed         []string // values or prefixes, as declared
	folded          []string // allowed, case folded when caseInsensitive
	caseInsensitive bool
	optional        bool
	match           MatchMode
	expr            string
	program         cel.Program
	template        string
	description     string
}

// Kind of rule
func (r FieldRule) Kind() RuleKind { return r.kind }

// Allowed returns a copy of the allowed values (exact_match) or prefixes (required_prefix).
func (r FieldRule) Allowed() []string {
	out := make([]string, len(r.allowed))
	copy(out, r.allowed)
	return out
}

func (r FieldRule) CaseInsensitive() bool { return r.caseInsensitive }
func (r FieldRule) Optional() bool { return r.optional }
func (r FieldRule) Match() MatchMode { return r.match }
func (r FieldRule) Expr() string { return r.expr }
func (r FieldRule) Template() string { return r.template }

// Description is the declared description, "" when none was given
func (r FieldRule) Description() string { return r.description }

// Describe renders the rule for ruleset dumps.
func (r FieldRule) Describe() string {
	if r.description != "" {
		return r.description
	}

	sens := ""
	if r.caseInsensitive {
		sens = " (case-insensitive)"
	}

	switch r.kind {
	case KindExactMatch:
		return fmt.Sprintf("%s value must equal one of %s%s", r.match, quoteList(r.allowed), sens)
	case KindRequiredPrefix:
		opt := ""
		if r.optional {
			opt = ", or be absent"
		}
		return fmt.Sprintf("%s value must start with one of %s%s%s", r.match, quoteList(r.allowed), sens, opt)
	case KindRequired:
		return "value must be present and non-empty"
	case KindExpression:
		return fmt.Sprintf("expression must hold: %s", r.expr)
	default:
		return string(r.kind)
	}
}

// check decides the rule for the observed values of its field
func (r FieldRule) check(values []string, input map[string]interface{}) bool {
	switch r.kind {
	case KindExactMatch:
		if len(values) == 0 {
			return false
		}
		return r.matches(values, r.isAllowedValue)
	case KindRequiredPrefix:
		if len(values) == 0 {
			return r.optional
		}
		return r.matches(values, r.hasAllowedPrefix)
	case KindRequired:
		return len(values) > 0
	case KindExpression:
		return evalExpression(r.program, values, input)
	default:
		return false
	}
}

// matches applies pred per the rule's match mode; values is non-empty
func (r FieldRule) matches(values []string, pred func(string) bool) bool {
	for _, v := range values {
		ok := pred(v)
		if r.match == MatchAll && !ok {
			return false
		}
		if r.match != MatchAll && ok {
			return true
		}
	}
	return r.match == MatchAll
}

func (r FieldRule) isAllowedValue(v string) bool {
	v = r.normalize(v)
	for _, a := range r.folded {
		if v == a {
			return true
		}
	}
	return false
}

func (r FieldRule) hasAllowedPrefix(v string) bool {
	v = r.normalize(v)
	for _, p := range r.folded {
		if strings.HasPrefix(v, p) {
			return true
		}
	}
	return false
}

// normalize folds case for case-insensitive rules. A Caser is stateful, so a
// fresh one is used per call to keep rules safe for concurrent use.
func (r FieldRule) normalize(v string) string {
	if !r.caseInsensitive {
		return v
	}
	return cases.Fold().String(v)
}

// render fills the failure template for one violation
func (r FieldRule) render(field string, values []string) string {
	actual := missingValue
	if len(values) > 0 {
		actual = quoteList(values)
	}

	msg := strings.NewReplacer(
		placeholderField, field,
		placeholderActual, actual,
		placeholderAllowed, quoteList(r.allowed),
		placeholderExpr, r.expr,
	).Replace(r.template)

	// operators always need the observed value
	if !strings.Contains(r.template, placeholderActual) {
		msg += " (actual: " + actual + ")"
	}
	return msg
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}
