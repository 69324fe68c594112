// Package receipt writes JSON evidence of a pkgvet run for audit trails.
package receipt

// ReceiptSchemaVersion current
const ReceiptSchemaVersion = "1.0"

// Result statuses
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// Receipt structure
type Receipt struct {
	SchemaVersion string           `json:"schema_version"`
	OpID          string           `json:"op_id"`
	TsStart       string           `json:"ts_start"`
	TsEnd         string           `json:"ts_end"`
	Command       string           `json:"command"`
	Args          []string         `json:"args"`
	ArgsRedacted  bool             `json:"args_redacted,omitempty"`
	Result        Result           `json:"result"`
	Policy        *PolicyRef       `json:"policy,omitempty"`
	Summary       *Summary         `json:"summary,omitempty"`
	Packages      []PackageReceipt `json:"packages,omitempty"`
}

// Result status
type Result struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// PolicyRef identifies the ruleset a run was evaluated against
type PolicyRef struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

// Summary counts
type Summary struct {
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
}

// PackageReceipt is the verdict for one input
type PackageReceipt struct {
	Path       string   `json:"path"`
	ID         string   `json:"id,omitempty"`
	Version    string   `json:"version,omitempty"`
	SHA256     string   `json:"sha256,omitempty"`
	Outcome    string   `json:"outcome"` // valid|invalid|error
	Violations []string `json:"violations,omitempty"`
	Error      string   `json:"error,omitempty"`
}
