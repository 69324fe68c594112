package models

// ComplianceResult of evaluating one package against one policy state
type ComplianceResult struct {
	IsCompliant bool     `json:"isCompliant"`
	Violations  []string `json:"violations"`
}
