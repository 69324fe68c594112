package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pkgvet/pkgvet/internal/policy"
	"github.com/pkgvet/pkgvet/internal/signing"
)

func newPolicyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and compare policy subscriptions",
	}
	cmd.AddCommand(newPolicyListCmd(a))
	cmd.AddCommand(newPolicyShowCmd(a))
	cmd.AddCommand(newPolicyDiffCmd(a))
	cmd.AddCommand(newPolicyKeygenCmd(a))
	cmd.AddCommand(newPolicySignCmd(a))
	return cmd
}

// loadPolicy resolves the configured ruleset. A policy file is checked
// against its signature first when a public key is configured; built-in
// subscriptions are embedded and need none.
func (a *app) loadPolicy() (*policy.State, error) {
	file := a.cfg.PolicyFile
	if file == "" || a.cfg.PolicyKey == "" {
		return policy.LoadSubscription(file, a.cfg.Subscription)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	sig := a.cfg.PolicySignature
	if sig == "" {
		sig = file + signing.SigSuffix
	}
	if err := signing.VerifyBytes(data, sig, a.cfg.PolicyKey); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	a.log.Debug("cli", "policy signature verified", "file", file)
	return policy.LoadDeclarationBytes(data)
}

func newPolicyListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in subscriptions",
		Args:  argsBetween(0, 0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range policy.ListPresetNames() {
				state, err := policy.LoadSubscription("", name)
				if err != nil {
					return err
				}
				marker := " "
				if name == policy.DefaultSubscription {
					marker = "*"
				}
				fmt.Fprintf(a.stdout, "%s %-12s %d rules  %s\n", marker, name, state.Len(), state.Fingerprint())
			}
			return nil
		},
	}
}

func newPolicyShowCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show [subscription|file]",
		Short: "Print the compiled ruleset",
		Long: `Print the ruleset that a validation run would use: the --policy file, the
--subscription, or the reference given as argument.`,
		Args: argsBetween(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				state *policy.State
				err   error
			)
			if len(args) == 1 {
				state, err = policy.ResolveRef(args[0])
			} else {
				state, err = a.loadPolicy()
			}
			if err != nil {
				return err
			}

			switch strings.ToLower(format) {
			case "yaml", "":
				return policy.RenderYAML(a.stdout, state)
			case "json":
				return policy.RenderJSON(a.stdout, state)
			default:
				return usageErrorf("invalid format: %s (use yaml or json)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml or json")
	return cmd
}

// argsBetween reports a wrong argument count as a usage error
func argsBetween(lo, hi int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < lo || len(args) > hi {
			if lo == hi {
				return usageErrorf("%s accepts %d arg(s), received %d", cmd.CommandPath(), lo, len(args))
			}
			return usageErrorf("%s accepts between %d and %d arg(s), received %d", cmd.CommandPath(), lo, hi, len(args))
		}
		return nil
	}
}
