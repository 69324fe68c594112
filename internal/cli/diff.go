package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkgvet/pkgvet/internal/differ"
	"github.com/pkgvet/pkgvet/internal/observability/logging"
	"github.com/pkgvet/pkgvet/internal/policy"
)

// failOn is the --fail-on threshold; the zero value never fails
type failOn struct {
	set   bool
	level differ.SeverityLevel
}

func parseFailOn(s string) (failOn, error) {
	if s == "" {
		return failOn{}, nil
	}
	level, err := differ.ParseSeverity(s)
	if err != nil {
		return failOn{}, fmt.Errorf("invalid --fail-on: %w", err)
	}
	return failOn{set: true, level: level}, nil
}

func (f failOn) String() string {
	if !f.set {
		return ""
	}
	return f.level.String()
}

// exceeded reports whether any change reaches the threshold
func (f failOn) exceeded(r *differ.DiffResult) bool {
	return f.set && r.HasChanges && r.Highest() >= f.level
}

// DiffOutput is the --json schema of policy diff
type DiffOutput struct {
	Old            string           `json:"old"`
	New            string           `json:"new"`
	OldFingerprint string           `json:"oldFingerprint"`
	NewFingerprint string           `json:"newFingerprint"`
	Changes        []DiffOutputItem `json:"changes"`
	FailOn         string           `json:"failOn,omitempty"`
	Outcome        string           `json:"outcome"` // "PASS" or "FAIL"
}

// DiffOutputItem detail
type DiffOutputItem struct {
	Field    string   `json:"field"`
	Type     string   `json:"type"`
	Severity string   `json:"severity"`
	Messages []string `json:"messages"`
}

func newPolicyDiffCmd(a *app) *cobra.Command {
	var (
		asJSON    bool
		threshold string
	)

	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Explain what changed between two rulesets",
		Long: `Compare two rulesets, each a built-in subscription name or a policy file,
and print one line per change.

With --fail-on the exit code is 1 when any change reaches that severity.`,
		Example: `  pkgvet policy diff microsoft ./corp-policy.yaml
  pkgvet policy diff old.yaml new.yaml --fail-on critical --json`,
		Args: argsBetween(2, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := parseFailOn(threshold)
			if err != nil {
				return &usageError{err: err}
			}

			prev, err := policy.ResolveRef(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			next, err := policy.ResolveRef(args[1])
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}

			result, err := differ.CompareStates(prev, next)
			if err != nil {
				return err
			}

			failed := limit.exceeded(result)

			logging.From(cmd.Context()).Event(cmd.Context(), "policy.diff", map[string]any{
				"old":     result.OldTag,
				"new":     result.NewTag,
				"changes": len(result.RuleDiffs),
				"failed":  failed,
			})

			if asJSON {
				err = a.printDiffJSON(result, limit, failed)
			} else {
				a.printDiff(result)
			}
			if err != nil {
				return err
			}

			if failed {
				a.exitCode = 1
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	cmd.Flags().StringVar(&threshold, "fail-on", "", "Exit 1 when a change reaches this severity: critical, moderate or info")
	return cmd
}

func (a *app) printDiff(result *differ.DiffResult) {
	w := a.stdout
	a.colors.bold.Fprintf(w, "Ruleset diff: %s → %s\n", result.OldTag, result.NewTag)
	a.colors.dim.Fprintf(w, "  %s → %s\n", result.OldFingerprint, result.NewFingerprint)
	fmt.Fprintln(w)

	if !result.HasChanges {
		fmt.Fprintln(w, "No ruleset changes.")
		return
	}

	for _, d := range result.RuleDiffs {
		c := a.colors.severity(d.Severity)
		c.Fprintf(w, "[%s]", d.Severity.String())
		fmt.Fprintf(w, " %s (%s)\n", d.Field, d.DiffType)
		for _, line := range d.Translations {
			fmt.Fprintf(w, "  - %s\n", line)
		}
	}
	fmt.Fprintf(w, "\n%d rule(s) changed\n", len(result.RuleDiffs))
}

func (a *app) printDiffJSON(result *differ.DiffResult, limit failOn, failed bool) error {
	out := DiffOutput{
		Old:            result.OldTag,
		New:            result.NewTag,
		OldFingerprint: result.OldFingerprint,
		NewFingerprint: result.NewFingerprint,
		Changes:        make([]DiffOutputItem, 0, len(result.RuleDiffs)),
		FailOn:         limit.String(),
		Outcome:        "PASS",
	}
	if failed {
		out.Outcome = "FAIL"
	}
	for _, d := range result.RuleDiffs {
		out.Changes = append(out.Changes, DiffOutputItem{
			Field:    d.Field,
			Type:     string(d.DiffType),
			Severity: d.Severity.String(),
			Messages: d.Translations,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal diff: %w", err)
	}
	_, err = fmt.Fprintln(a.stdout, string(data))
	return err
}
