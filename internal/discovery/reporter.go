package discovery

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Level controls how much the Reporter prints.
type Level int

const (
	LevelQuiet Level = iota
	LevelInfo
	LevelVerbose
)

// Reporter prints colored progress and diagnostics for the CLI.
type Reporter struct {
	out    io.Writer
	errOut io.Writer
	level  Level
}

func NewReporter(out, errOut io.Writer, level Level) *Reporter {
	return &Reporter{out: out, errOut: errOut, level: level}
}

var (
	sectionColor = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

func (r *Reporter) Section(title string) {
	if r.level >= LevelInfo {
		_, _ = sectionColor.Fprintln(r.out, title)
	}
}

func (r *Reporter) Info(format string, args ...any) {
	if r.level >= LevelInfo {
		_, _ = fmt.Fprintf(r.out, format+"\n", args...)
	}
}

func (r *Reporter) Verbose(format string, args ...any) {
	if r.level >= LevelVerbose {
		_, _ = dimColor.Fprintf(r.out, format+"\n", args...)
	}
}

func (r *Reporter) Success(format string, args ...any) {
	if r.level >= LevelInfo {
		_, _ = successColor.Fprint(r.out, "✓ ")
		_, _ = fmt.Fprintf(r.out, format+"\n", args...)
	}
}

// Warn is printed at every level.
func (r *Reporter) Warn(format string, args ...any) {
	_, _ = warnColor.Fprint(r.errOut, "! ")
	_, _ = fmt.Fprintf(r.errOut, format+"\n", args...)
}

// Error is printed at every level.
func (r *Reporter) Error(format string, args ...any) {
	_, _ = errorColor.Fprint(r.errOut, "ERROR ")
	_, _ = fmt.Fprintf(r.errOut, format+"\n", args...)
}

// Diagnostics prints every diagnostic with its position.
func (r *Reporter) Diagnostics(diags []Diagnostic) {
	for _, d := range diags {
		_, _ = errorColor.Fprintf(r.errOut, "%s:%d: ", d.File, d.Line)
		_, _ = fmt.Fprintln(r.errOut, d.Message)
	}
}
