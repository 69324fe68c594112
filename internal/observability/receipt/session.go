package receipt

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/pkgvet/pkgvet/internal/observability"
)

// MaxErrorLength is the maximum length for error strings in receipts.
const MaxErrorLength = 2048

type writerKey struct{}

// WithWriter attaches w to ctx; sessions started from ctx write through it.
func WithWriter(ctx context.Context, w Writer) context.Context {
	return context.WithValue(ctx, writerKey{}, w)
}

func writerFrom(ctx context.Context) Writer {
	w, _ := ctx.Value(writerKey{}).(Writer)
	return w
}

// Session collects one command's receipt. Arguments are redacted when the
// session starts.
type Session struct {
	w     Writer
	start time.Time
	base  Receipt
}

// Start a session for command
func Start(ctx context.Context, command string, args []string) *Session {
	redacted, changed := RedactArgs(args)
	return &Session{
		w:     writerFrom(ctx),
		start: time.Now(),
		base: Receipt{
			SchemaVersion: ReceiptSchemaVersion,
			OpID:          observability.OpID(ctx),
			Command:       command,
			Args:          redacted,
			ArgsRedacted:  changed,
		},
	}
}

// Option fills a section of the receipt
type Option func(*Receipt)

// WithPolicy records the evaluated ruleset
func WithPolicy(name, version, fingerprint string) Option {
	return func(r *Receipt) {
		r.Policy = &PolicyRef{Name: name, Version: version, Fingerprint: fingerprint}
	}
}

// WithSummary records the valid and invalid counts
func WithSummary(valid, invalid int) Option {
	return func(r *Receipt) {
		r.Summary = &Summary{Valid: valid, Invalid: invalid}
	}
}

// WithPackages records per-package verdicts; error strings are truncated
func WithPackages(pkgs []PackageReceipt) Option {
	return func(r *Receipt) {
		r.Packages = make([]PackageReceipt, len(pkgs))
		for i, p := range pkgs {
			p.Error = truncateError(p.Error)
			r.Packages[i] = p
		}
	}
}

// Finish stamps the verdict and writes the receipt. Without a writer in
// the start context it does nothing.
func (s *Session) Finish(err error, opts ...Option) error {
	if s.w == nil {
		return nil
	}

	r := s.base
	r.TsStart = s.start.UTC().Format(time.RFC3339Nano)
	r.TsEnd = time.Now().UTC().Format(time.RFC3339Nano)
	r.Result = Result{Status: StatusSuccess}
	if err != nil {
		r.Result = Result{Status: StatusFail, Error: truncateError(err.Error())}
	}
	for _, opt := range opts {
		opt(&r)
	}
	return s.w.Write(r)
}

// truncateError cuts on a rune boundary
func truncateError(s string) string {
	if len(s) <= MaxErrorLength {
		return s
	}
	cut := MaxErrorLength - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
