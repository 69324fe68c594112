package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// RulesetDump is the serializable view of a State
type RulesetDump struct {
	Policy      string     `yaml:"policy" json:"policy"`
	Version     string     `yaml:"version,omitempty" json:"version,omitempty"`
	Fingerprint string     `yaml:"fingerprint" json:"fingerprint"`
	Rules       []RuleDump `yaml:"rules" json:"rules"`
}

// RuleDump one field rule
type RuleDump struct {
	Field           string   `yaml:"field" json:"field"`
	Kind            string   `yaml:"kind" json:"kind"`
	Description     string   `yaml:"description" json:"description"`
	Values          []string `yaml:"values,omitempty" json:"values,omitempty"`
	Prefixes        []string `yaml:"prefixes,omitempty" json:"prefixes,omitempty"`
	CaseInsensitive bool     `yaml:"case_insensitive,omitempty" json:"case_insensitive,omitempty"`
	Optional        bool     `yaml:"optional,omitempty" json:"optional,omitempty"`
	Match           string   `yaml:"match,omitempty" json:"match,omitempty"`
	Expr            string   `yaml:"expr,omitempty" json:"expr,omitempty"`
	FailureMsg      string   `yaml:"failure_msg" json:"failure_msg"`
}

// Dump renders the state in its fixed field order
func (s *State) Dump() RulesetDump {
	return RulesetDump{
		Policy:      s.name,
		Version:     s.version,
		Fingerprint: s.fingerprint,
		Rules:       s.dumpRules(),
	}
}

func (s *State) dumpRules() []RuleDump {
	rules := make([]RuleDump, 0, len(s.entries))
	for _, e := range s.entries {
		r := e.Rule
		d := RuleDump{
			Field:           e.Field,
			Kind:            string(r.kind),
			Description:     r.Describe(),
			CaseInsensitive: r.caseInsensitive,
			Expr:            r.expr,
			FailureMsg:      r.template,
		}
		switch r.kind {
		case KindExactMatch:
			d.Values = r.Allowed()
			d.Match = string(r.match)
		case KindRequiredPrefix:
			d.Prefixes = r.Allowed()
			d.Match = string(r.match)
			d.Optional = r.optional
		}
		rules = append(rules, d)
	}
	return rules
}

// RenderYAML writes the ruleset dump as YAML
func RenderYAML(w io.Writer, s *State) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s.Dump()); err != nil {
		return fmt.Errorf("failed to encode ruleset: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode ruleset: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// RenderJSON writes the ruleset dump as indented JSON
func RenderJSON(w io.Writer, s *State) error {
	data, err := json.MarshalIndent(s.Dump(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ruleset: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
