// Package cli implements the pkgvet command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkgvet/pkgvet/internal/config"
	"github.com/pkgvet/pkgvet/internal/observability"
	"github.com/pkgvet/pkgvet/internal/observability/logging"
	otelobs "github.com/pkgvet/pkgvet/internal/observability/otel"
	"github.com/pkgvet/pkgvet/internal/observability/receipt"
	"github.com/pkgvet/pkgvet/internal/version"
)

// Exit codes outside the invalid-count range
const (
	ExitUsage = -1
	ExitFault = -2
)

const shutdownTimeout = 5 * time.Second

// helpAliases are rewritten to --help before parsing
var helpAliases = map[string]bool{
	"-?":     true,
	"/?":     true,
	"/h":     true,
	"/help":  true,
	"-help":  true,
	"--help": true,
	"-h":     true,
}

// usageError means the invocation itself was wrong; no package was evaluated
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// app is the state of one invocation
type app struct {
	stdout io.Writer
	stderr io.Writer
	argv   []string

	configPath string
	jobs       int

	cfg      *config.Config
	log      logging.Logger
	otel     *otelobs.Handle
	receipts receipt.Writer

	colors    *palette
	helpShown bool
	exitCode  int
}

// Execute runs pkgvet with the process arguments and returns the exit code
func Execute() int {
	return run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (code int) {
	a := &app{stdout: stdout, stderr: stderr, argv: args, colors: newPalette()}

	defer func() {
		if v := recover(); v != nil {
			fmt.Fprintf(stderr, "pkgvet: unhandled fault: %v\n%s", v, debug.Stack())
			code = ExitFault
		}
	}()

	cmd := newRootCmd(a)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if len(args) == 0 {
		_ = cmd.Usage()
		return ExitUsage
	}
	cmd.SetArgs(normalizeHelp(args))

	ctx = observability.WithOpID(ctx)
	if id := os.Getenv(observability.OpIDEnv); id != "" {
		ctx = observability.WithOpIDValue(ctx, id)
	}
	err := cmd.ExecuteContext(ctx)
	a.close()

	var uerr *usageError
	switch {
	case errors.As(err, &uerr):
		fmt.Fprintf(stderr, "Error: %v\n\n", err)
		fmt.Fprint(stderr, cmd.UsageString())
		return ExitUsage
	case err != nil:
		fmt.Fprintf(stderr, "pkgvet: %v\n", err)
		return ExitFault
	case a.helpShown:
		return ExitUsage
	}
	return a.exitCode
}

func normalizeHelp(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		if helpAliases[arg] {
			arg = "--help"
		}
		out[i] = arg
	}
	return out
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pkgvet [flags] <path|pattern>...",
		Short: "Check package metadata against a compliance policy",
		Long: `pkgvet checks the manifest metadata of package archives against the rules
of a policy subscription and reports every violation.

The exit code is the number of invalid packages; -1 means a usage error
and -2 an unexpected fault.`,
		Example: `  pkgvet ./out/*.nupkg
  pkgvet -r --subscription baseline ./artifacts/*.nupkg
  pkgvet --policy corp-policy.yaml Contoso.Core.1.0.0.nupkg
  pkgvet policy show --subscription microsoft`,
		Version:           version.String(),
		Args:              cobra.ArbitraryArgs,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE:              a.runValidate,
	}

	addGlobalFlags(cmd, a)
	cmd.Flags().IntVarP(&a.jobs, "jobs", "j", 1, "Number of packages evaluated concurrently (output order is unchanged)")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	defaultHelp := cmd.HelpFunc()
	cmd.SetHelpFunc(func(c *cobra.Command, args []string) {
		a.helpShown = true
		defaultHelp(c, args)
	})

	cmd.AddCommand(newPolicyCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func addGlobalFlags(cmd *cobra.Command, a *app) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (default ./"+config.LocalFileName+" if present)")
	pf.StringP("policy", "p", "", "Policy declaration file; overrides --subscription")
	pf.StringP("subscription", "s", "", "Built-in policy subscription (microsoft, baseline)")
	pf.String("policy-key", "", "Public key the --policy file must be signed with")
	pf.String("policy-sig", "", "Detached policy signature (default <policy>.sig)")
	pf.BoolP("recursive", "r", false, "Expand wildcards in subdirectories too")
	pf.String("color", "", "Colour output: auto, always or never")
	pf.String("log-format", "", "Log format: none, pretty or jsonl")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.String("log-output", "", "Log destination: stderr or a file path")
	pf.Bool("otel", false, "Export OpenTelemetry traces")
	pf.String("otel-endpoint", "", "OTLP endpoint")
	pf.String("otel-protocol", "", "OTLP protocol: otlphttp or otlpgrpc")
	pf.Bool("otel-insecure", false, "Use plaintext OTLP transport")
	pf.Float64("otel-sample-ratio", 1.0, "Trace sample ratio between 0 and 1")
	pf.String("receipt", "", "Write a JSON run receipt to this path")
	pf.String("receipt-mode", "", "Receipt write mode: overwrite or append")
}

// setup resolves configuration and installs the logger, tracer and receipt
// writer into the command context
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.log = logger
	ctx := logging.WithLogger(cmd.Context(), logger)

	if cfg.File != "" {
		logger.Debug("cli", "config loaded", "file", cfg.File)
	}

	if cfg.OTel.Enabled {
		h, err := otelobs.Init(ctx, cfg.OTel)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		a.otel = h
		ctx = otelobs.WithHandle(ctx, h)
	}

	if cfg.Receipt.Path != "" {
		w, err := receipt.NewWriter(cfg.Receipt.Path, cfg.Receipt.Mode)
		if err != nil {
			// receipts never change the verdict
			logger.Warn("cli", "receipt disabled", "error", err.Error())
			fmt.Fprintf(a.stderr, "warning: %v\n", err)
		} else {
			a.receipts = w
			ctx = receipt.WithWriter(ctx, w)
		}
	}

	a.applyColor(cfg.Color)
	cmd.SetContext(ctx)
	return nil
}

// close flushes the collaborators opened by setup
func (a *app) close() {
	if a.receipts != nil {
		if err := a.receipts.Close(); err != nil && a.log != nil {
			a.log.Warn("cli", "receipt close failed", "error", err.Error())
		}
	}
	if a.otel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.otel.Shutdown(ctx); err != nil && a.log != nil {
			a.log.Warn("cli", "trace export failed", "error", err.Error())
		}
	}
	if a.log != nil {
		_ = a.log.Close()
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pkgvet version",
		Args:  argsBetween(0, 0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "pkgvet %s\n", version.String())
			return nil
		},
	}
}
