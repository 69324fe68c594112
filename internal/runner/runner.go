// Package runner evaluates a batch of package paths against one ruleset and
// folds the verdicts into a summary whose exit code is the invalid count.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/pkgvet/pkgvet/internal/models"
	"github.com/pkgvet/pkgvet/internal/nupkg"
	"github.com/pkgvet/pkgvet/internal/observability/logging"
	"github.com/pkgvet/pkgvet/internal/observability/otel"
	"github.com/pkgvet/pkgvet/internal/policy"
	"github.com/pkgvet/pkgvet/internal/resolver"
)

// ParseFunc turns archive bytes into metadata
type ParseFunc func(data []byte) (*models.Metadata, error)

// ResolveFunc expands one input pattern into paths
type ResolveFunc func(pattern string, recursive bool) ([]string, error)

// Runner holds the read-only state shared by every evaluation
type Runner struct {
	state    *policy.State
	parse    ParseFunc
	resolve  ResolveFunc
	readFile func(string) ([]byte, error)
	stat     func(string) (fs.FileInfo, error)
	reporter Reporter
	workers  int
}

type Option func(*Runner)

func WithParser(p ParseFunc) Option {
	return func(r *Runner) { r.parse = p }
}

func WithResolver(fn ResolveFunc) Option {
	return func(r *Runner) { r.resolve = fn }
}

func WithFileReader(fn func(string) ([]byte, error)) Option {
	return func(r *Runner) { r.readFile = fn }
}

func WithReporter(rep Reporter) Option {
	return func(r *Runner) { r.reporter = rep }
}

// WithWorkers evaluates up to n packages at once. Results are still
// reported and summarized in resolution order.
func WithWorkers(n int) Option {
	return func(r *Runner) { r.workers = n }
}

// New builds a runner for state. Defaults: nupkg.Parse, resolver.Resolve,
// os.ReadFile, one worker, no reporter.
func New(state *policy.State, opts ...Option) *Runner {
	r := &Runner{
		state:    state,
		parse:    nupkg.Parse,
		resolve:  resolver.Resolve,
		readFile: os.ReadFile,
		stat:     os.Stat,
		workers:  1,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers < 1 {
		r.workers = 1
	}
	return r
}

// item is one resolved input; err is set when resolution itself failed
type item struct {
	path string
	err  error
}

// Run resolves every pattern and evaluates each resulting path. Per-item
// failures become invalid results; the batch always runs to the end.
func (r *Runner) Run(ctx context.Context, patterns []string, recursive bool) Summary {
	start := time.Now()
	log := logging.From(ctx)

	ctx, span := otel.Tracer(ctx).Start(ctx, "pkgvet.validate",
		trace.WithAttributes(
			attribute.String("pkgvet.policy", r.state.Tag()),
			attribute.String("pkgvet.policy.fingerprint", r.state.Fingerprint()),
			attribute.Int("pkgvet.patterns", len(patterns)),
		),
	)
	defer span.End()

	log.Event(ctx, "run.start", map[string]any{
		"policy":      r.state.Tag(),
		"fingerprint": r.state.Fingerprint(),
		"patterns":    len(patterns),
		"recursive":   recursive,
		"workers":     r.workers,
	})

	items := r.expand(ctx, patterns, recursive)

	summary := Summary{Results: make([]PackageResult, 0, len(items))}
	emit := func(res PackageResult) {
		summary.add(res)
		if r.reporter != nil {
			r.reporter.Report(res)
		}
	}

	if r.workers == 1 || len(items) < 2 {
		for _, it := range items {
			emit(r.process(ctx, it))
		}
	} else {
		r.processConcurrently(ctx, items, emit)
	}

	span.SetAttributes(
		attribute.Int("pkgvet.valid", summary.Valid),
		attribute.Int("pkgvet.invalid", summary.Invalid),
	)
	if summary.Invalid > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d invalid package(s)", summary.Invalid))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	log.Event(ctx, "run.finish", map[string]any{
		"valid":       summary.Valid,
		"invalid":     summary.Invalid,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return summary
}

func (r *Runner) expand(ctx context.Context, patterns []string, recursive bool) []item {
	log := logging.From(ctx)

	var items []item
	for _, pattern := range patterns {
		paths, err := r.resolve(pattern, recursive)
		if err != nil {
			log.Warn("runner", "pattern did not resolve", "pattern", pattern, "error", err.Error())
			items = append(items, item{path: pattern, err: resolutionError(pattern, err)})
			continue
		}
		log.Debug("runner", "pattern resolved", "pattern", pattern, "count", len(paths))
		for _, p := range paths {
			items = append(items, item{path: p})
		}
	}
	return items
}

func resolutionError(pattern string, err error) error {
	var pathErr *PathError
	if errors.As(err, &pathErr) {
		return err
	}
	if errors.Is(err, fs.ErrNotExist) {
		return &PathError{Path: pattern, Err: ErrNotFound}
	}
	return &PathError{Path: pattern, Err: err}
}

// processConcurrently fans evaluation out and reports in order
func (r *Runner) processConcurrently(ctx context.Context, items []item, emit func(PackageResult)) {
	results := make([]PackageResult, len(items))
	done := make([]chan struct{}, len(items))
	for i := range done {
		done[i] = make(chan struct{})
	}

	var g errgroup.Group
	g.SetLimit(r.workers)
	go func() {
		for i := range items {
			g.Go(func() error {
				results[i] = r.process(ctx, items[i])
				close(done[i])
				return nil
			})
		}
	}()

	for i := range items {
		<-done[i]
		emit(results[i])
	}
	_ = g.Wait()
}

// process evaluates one item. It never panics and never returns early
// without a verdict.
func (r *Runner) process(ctx context.Context, it item) (res PackageResult) {
	ctx, span := otel.Tracer(ctx).Start(ctx, "pkgvet.package",
		trace.WithAttributes(attribute.String("pkgvet.path", it.path)),
	)
	defer span.End()

	res = PackageResult{Path: it.path}

	defer func() {
		if v := recover(); v != nil {
			res = PackageResult{Path: it.path, SHA256: res.SHA256, Outcome: OutcomeError, Err: &panicError{value: v}}
		}

		span.SetAttributes(
			attribute.String("pkgvet.outcome", string(res.Outcome)),
			attribute.Int("pkgvet.violations", len(res.Violations)),
		)
		if res.ID != "" {
			span.SetAttributes(attribute.String("pkgvet.package.id", res.ID))
		}
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
		}

		fields := map[string]any{
			"path":       res.Path,
			"outcome":    string(res.Outcome),
			"violations": len(res.Violations),
		}
		if res.Err != nil {
			fields["error"] = res.Err.Error()
		}
		logging.From(ctx).Event(ctx, "package.evaluated", fields)
	}()

	if it.err != nil {
		res.Outcome = OutcomeError
		res.Err = it.err
		return res
	}

	data, err := r.read(it.path)
	if err != nil {
		res.Outcome = OutcomeError
		res.Err = err
		return res
	}
	res.SHA256 = nupkg.Hash(data)

	md, err := r.parse(data)
	if err != nil {
		res.Outcome = OutcomeError
		res.Err = &PathError{Path: it.path, Err: err}
		return res
	}
	res.ID = md.ID
	res.Version = md.Version

	verdict := policy.Evaluate(md, r.state)
	res.Violations = verdict.Violations
	if verdict.IsCompliant {
		res.Outcome = OutcomeValid
	} else {
		res.Outcome = OutcomeInvalid
	}
	return res
}

func (r *Runner) read(path string) ([]byte, error) {
	info, err := r.stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &PathError{Path: path, Err: ErrNotFound}
		}
		return nil, &PathError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &PathError{Path: path, Err: ErrIsDirectory}
	}

	data, err := r.readFile(path)
	if err != nil {
		return nil, &PathError{Path: path, Err: err}
	}
	return data, nil
}
