package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkgvet/pkgvet/internal/observability/logging"
	"github.com/pkgvet/pkgvet/internal/observability/receipt"
	"github.com/pkgvet/pkgvet/internal/policy"
	"github.com/pkgvet/pkgvet/internal/runner"
)

// runValidate is the root command: evaluate every path argument
func (a *app) runValidate(cmd *cobra.Command, args []string) (err error) {
	if len(args) == 0 {
		return usageErrorf("no package paths given")
	}
	if a.jobs < 1 {
		return usageErrorf("--jobs must be at least 1")
	}

	ctx := cmd.Context()
	log := logging.From(ctx)
	sess := receipt.Start(ctx, "pkgvet", a.argv)

	state, err := a.loadPolicy()
	if err != nil {
		finishReceipt(log, sess, err)
		return err
	}
	log.Info("cli", "policy loaded", "policy", state.Tag(), "fingerprint", state.Fingerprint(), "rules", state.Len())

	r := runner.New(state,
		runner.WithReporter(&consoleReporter{w: a.stdout, colors: a.colors}),
		runner.WithWorkers(a.jobs),
	)
	summary := r.Run(ctx, args, a.cfg.Recursive)

	printSummary(a.stdout, summary)
	if summary.Invalid > 0 {
		fmt.Fprintln(a.stdout)
		if err := policy.RenderYAML(a.stdout, state); err != nil {
			return err
		}
	}

	finishReceipt(log, sess, nil,
		receipt.WithPolicy(state.Name(), state.Version(), state.Fingerprint()),
		receipt.WithSummary(summary.Valid, summary.Invalid),
		receipt.WithPackages(packageReceipts(summary.Results)),
	)

	a.exitCode = summary.ExitCode()
	return nil
}

// finishReceipt logs receipt failures instead of returning them
func finishReceipt(log logging.Logger, sess *receipt.Session, runErr error, opts ...receipt.Option) {
	if err := sess.Finish(runErr, opts...); err != nil {
		log.Warn("cli", "receipt write failed", "error", err.Error())
	}
}

func packageReceipts(results []runner.PackageResult) []receipt.PackageReceipt {
	out := make([]receipt.PackageReceipt, len(results))
	for i, r := range results {
		out[i] = receipt.PackageReceipt{
			Path:       r.Path,
			ID:         r.ID,
			Version:    r.Version,
			SHA256:     r.SHA256,
			Outcome:    string(r.Outcome),
			Violations: r.Violations,
		}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return out
}
