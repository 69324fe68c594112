package models

// PolicyDeclaration is the raw rule set of a policy subscription (yaml)
type PolicyDeclaration struct {
	Name    string            `yaml:"name" json:"name"`
	Version string            `yaml:"version" json:"version"`
	Rules   []RuleDeclaration `yaml:"rules" json:"rules"`
}

// RuleDeclaration one typed rule for one metadata field
type RuleDeclaration struct {
	Field           string   `yaml:"field" json:"field"`
	Kind            string   `yaml:"kind" json:"kind"`
	Values          []string `yaml:"values,omitempty" json:"values,omitempty"`
	Prefixes        []string `yaml:"prefixes,omitempty" json:"prefixes,omitempty"`
	CaseInsensitive bool     `yaml:"case_insensitive,omitempty" json:"case_insensitive,omitempty"`
	Optional        bool     `yaml:"optional,omitempty" json:"optional,omitempty"`
	Match           string   `yaml:"match,omitempty" json:"match,omitempty"` // "any" (default) or "all"
	Expr            string   `yaml:"expr,omitempty" json:"expr,omitempty"`
	FailureMsg      string   `yaml:"failure_msg,omitempty" json:"failure_msg,omitempty"`
	Description     string   `yaml:"description,omitempty" json:"description,omitempty"`
}
