package policy

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkgvet/pkgvet/internal/models"
	"golang.org/x/text/cases"
)

// MalformedPolicyError means a declaration could not be compiled.
// There is no partial policy: callers must abort the run.
type MalformedPolicyError struct {
	Index  int    // rule position in the declaration, -1 for policy-level problems
	Field  string // field identifier, if known
	Reason string
}

func (e *MalformedPolicyError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("malformed policy: %s", e.Reason)
	}
	if e.Field == "" {
		return fmt.Sprintf("malformed policy: rule %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("malformed policy: rule %d (%s): %s", e.Index, e.Field, e.Reason)
}

// FieldEntry pairs a field identifier with its rule
type FieldEntry struct {
	Field string
	Rule  FieldRule
}

// State is the compiled, immutable form of a policy declaration. It is safe
// for concurrent use.
type State struct {
	name        string
	version     string
	entries     []FieldEntry
	index       map[string]int
	fingerprint string
}

// Deserialize compiles a policy declaration into a State.
func Deserialize(decl *models.PolicyDeclaration) (*State, error) {
	if decl == nil {
		return nil, &MalformedPolicyError{Index: -1, Reason: "declaration is empty"}
	}
	if len(decl.Rules) == 0 {
		return nil, &MalformedPolicyError{Index: -1, Reason: "policy must have at least one rule"}
	}

	s := &State{
		name:    decl.Name,
		version: decl.Version,
		entries: make([]FieldEntry, 0, len(decl.Rules)),
		index:   make(map[string]int, len(decl.Rules)),
	}

	for i, rd := range decl.Rules {
		field := strings.TrimSpace(rd.Field)
		if field == "" {
			return nil, &MalformedPolicyError{Index: i, Reason: "missing field identifier"}
		}
		if _, dup := s.index[field]; dup {
			return nil, &MalformedPolicyError{Index: i, Field: field, Reason: "duplicate field identifier"}
		}

		rule, err := compileRule(rd)
		if err != nil {
			return nil, &MalformedPolicyError{Index: i, Field: field, Reason: err.Error()}
		}

		s.index[field] = len(s.entries)
		s.entries = append(s.entries, FieldEntry{Field: field, Rule: rule})
	}

	fp, err := s.computeFingerprint()
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint policy: %w", err)
	}
	s.fingerprint = fp

	return s, nil
}

// compileRule validates one declaration per its kind
func compileRule(rd models.RuleDeclaration) (FieldRule, error) {
	kind := RuleKind(strings.ToLower(strings.TrimSpace(rd.Kind)))

	match := MatchMode(strings.ToLower(strings.TrimSpace(rd.Match)))
	switch match {
	case "":
		match = MatchAny
	case MatchAny, MatchAll:
	default:
		return FieldRule{}, fmt.Errorf("unknown match mode %q (use any or all)", rd.Match)
	}

	rule := FieldRule{
		kind:            kind,
		caseInsensitive: rd.CaseInsensitive,
		optional:        rd.Optional,
		match:           match,
		template:        rd.FailureMsg,
		description:     rd.Description,
	}

	switch kind {
	case KindExactMatch:
		if len(rd.Values) == 0 {
			return FieldRule{}, fmt.Errorf("%s requires at least one value", kind)
		}
		rule.allowed = copyStrings(rd.Values)
	case KindRequiredPrefix:
		if len(rd.Prefixes) == 0 {
			return FieldRule{}, fmt.Errorf("%s requires at least one prefix", kind)
		}
		rule.allowed = copyStrings(rd.Prefixes)
	case KindRequired:
	case KindExpression:
		if strings.TrimSpace(rd.Expr) == "" {
			return FieldRule{}, fmt.Errorf("%s requires expr", kind)
		}
		prg, err := compileExpression(rd.Expr)
		if err != nil {
			return FieldRule{}, err
		}
		rule.expr = rd.Expr
		rule.program = prg
	case "":
		return FieldRule{}, fmt.Errorf("missing rule kind")
	default:
		return FieldRule{}, fmt.Errorf("unknown rule kind %q", rd.Kind)
	}

	if err := rejectUnused(kind, rd); err != nil {
		return FieldRule{}, err
	}

	for _, a := range rule.allowed {
		if a == "" {
			return FieldRule{}, fmt.Errorf("%s has an empty allowed entry", kind)
		}
	}

	rule.folded = rule.allowed
	if rule.caseInsensitive {
		caser := cases.Fold()
		rule.folded = make([]string, len(rule.allowed))
		for i, a := range rule.allowed {
			rule.folded[i] = caser.String(a)
		}
	}

	if rule.template == "" {
		rule.template = defaultTemplates[kind]
	}

	return rule, nil
}

// kindParams lists the optional declaration parameters each kind reads
var kindParams = map[RuleKind]map[string]bool{
	KindExactMatch:     {"values": true, "case_insensitive": true},
	KindRequiredPrefix: {"prefixes": true, "optional": true, "case_insensitive": true},
	KindRequired:       {},
	KindExpression:     {"expr": true},
}

// rejectUnused fails on parameters the rule kind would silently ignore
func rejectUnused(kind RuleKind, rd models.RuleDeclaration) error {
	declared := []struct {
		name string
		set  bool
	}{
		{"values", len(rd.Values) > 0},
		{"prefixes", len(rd.Prefixes) > 0},
		{"expr", strings.TrimSpace(rd.Expr) != ""},
		{"optional", rd.Optional},
		{"case_insensitive", rd.CaseInsensitive},
	}
	for _, p := range declared {
		if p.set && !kindParams[kind][p.name] {
			return fmt.Errorf("%s not allowed for %s", p.name, kind)
		}
	}
	return nil
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Name of the subscription the state came from
func (s *State) Name() string { return s.name }

// Version of the subscription declaration
func (s *State) Version() string { return s.version }

// Tag identifies the subscription as name@version
func (s *State) Tag() string {
	if s.version == "" {
		return s.name
	}
	return s.name + "@" + s.version
}

// Fingerprint is sha256 over the rendered rules
func (s *State) Fingerprint() string { return s.fingerprint }

// Len returns the number of field rules
func (s *State) Len() int { return len(s.entries) }

// Rule looks up a field rule by identifier
func (s *State) Rule(field string) (FieldRule, bool) {
	i, ok := s.index[field]
	if !ok {
		return FieldRule{}, false
	}
	return s.entries[i].Rule, true
}

// FieldRules returns the rules in the policy's declared order.
func (s *State) FieldRules() []FieldEntry {
	out := make([]FieldEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *State) computeFingerprint() (string, error) {
	data, err := json.Marshal(s.dumpRules())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", sha256.Sum256(data)), nil
}
