package runner

// Outcome is the verdict for one input
type Outcome string

const (
	OutcomeValid   Outcome = "valid"
	OutcomeInvalid Outcome = "invalid"
	// OutcomeError counts as invalid; the input could not be evaluated
	OutcomeError Outcome = "error"
)

// PackageResult is the verdict for one resolved path
type PackageResult struct {
	Path       string
	ID         string
	Version    string
	SHA256     string
	Outcome    Outcome
	Violations []string
	Err        error
}

func (r PackageResult) Valid() bool { return r.Outcome == OutcomeValid }

// Summary of a run, results in resolution order
type Summary struct {
	Valid   int
	Invalid int
	Results []PackageResult
}

// MaxExitCode caps the invalid count. The OS keeps only the low 8 bits of
// a status, and 254/255 are what the fault and usage sentinels become.
const MaxExitCode = 253

// ExitCode is the number of invalid packages, capped at MaxExitCode
func (s Summary) ExitCode() int { return min(s.Invalid, MaxExitCode) }

func (s *Summary) add(r PackageResult) {
	if r.Valid() {
		s.Valid++
	} else {
		s.Invalid++
	}
	s.Results = append(s.Results, r)
}

// Reporter receives each result as soon as it is final, in resolution order
type Reporter interface {
	Report(PackageResult)
}

// ReporterFunc adapts a function to Reporter
type ReporterFunc func(PackageResult)

func (f ReporterFunc) Report(r PackageResult) { f(r) }
