package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/pkgvet/pkgvet/internal/config"
	"github.com/pkgvet/pkgvet/internal/differ"
	"github.com/pkgvet/pkgvet/internal/runner"
)

// palette holds the colours of one invocation
type palette struct {
	ok   *color.Color
	fail *color.Color
	warn *color.Color
	bold *color.Color
	dim  *color.Color
}

func newPalette() *palette {
	return &palette{
		ok:   color.New(color.FgGreen),
		fail: color.New(color.FgRed),
		warn: color.New(color.FgYellow),
		bold: color.New(color.Bold),
		dim:  color.New(color.Faint),
	}
}

func (p *palette) all() []*color.Color {
	return []*color.Color{p.ok, p.fail, p.warn, p.bold, p.dim}
}

// applyColor forces colour on or off; auto leaves fatih/color's terminal
// detection in charge
func (a *app) applyColor(mode string) {
	for _, c := range a.colors.all() {
		switch mode {
		case config.ColorAlways:
			c.EnableColor()
		case config.ColorNever:
			c.DisableColor()
		}
	}
}

// consoleReporter streams one block per package as soon as it is final
type consoleReporter struct {
	w      io.Writer
	colors *palette
}

func (c *consoleReporter) Report(res runner.PackageResult) {
	label := res.Path
	if res.ID != "" {
		label = fmt.Sprintf("%s (%s %s)", res.Path, res.ID, res.Version)
	}

	switch res.Outcome {
	case runner.OutcomeValid:
		c.colors.ok.Fprint(c.w, "✓")
		fmt.Fprintf(c.w, " %s\n", label)
	case runner.OutcomeInvalid:
		c.colors.fail.Fprint(c.w, "✗")
		fmt.Fprintf(c.w, " %s\n", label)
		for _, v := range res.Violations {
			c.colors.fail.Fprintf(c.w, "  → %s\n", v)
		}
	default:
		c.colors.fail.Fprint(c.w, "✗")
		fmt.Fprintf(c.w, " %s\n", label)
		c.colors.warn.Fprintf(c.w, "  → error: %v\n", res.Err)
	}
}

// printSummary writes the two count lines; they are never coloured so
// scripts can match them
func printSummary(w io.Writer, s runner.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Valid package count: %d\n", s.Valid)
	fmt.Fprintf(w, "Invalid package count: %d\n", s.Invalid)
}

func (p *palette) severity(s differ.SeverityLevel) *color.Color {
	switch s {
	case differ.SeverityCritical:
		return p.fail
	case differ.SeverityModerate:
		return p.warn
	default:
		return p.ok
	}
}
