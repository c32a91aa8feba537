// Package ui renders CLI output: load error reports, status lines, and
// aligned tables.
package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/weftwork/weft/meta"
)

// FormatLoadError renders a load failure for the terminal. Configuration
// errors get their code, source location, node path, and hints; constraint
// violations get the constraint id; anything else prints as-is.
func FormatLoadError(err error, noColor bool) string {
	var b strings.Builder

	header := color.New(color.FgRed, color.Bold)
	body := color.New(color.FgRed)
	dim := color.New(color.FgHiBlack)
	hint := color.New(color.FgCyan)
	if noColor {
		header.DisableColor()
		body.DisableColor()
		dim.DisableColor()
		hint.DisableColor()
	}

	var ce *meta.ConfigError
	if errors.As(err, &ce) {
		header.Fprintf(&b, "✗ LOAD FAILED [%s]\n", ce.Code)
		body.Fprintf(&b, "   %s\n", ce.Message)
		if ce.Loc != nil && ce.Loc.String() != "" {
			dim.Fprintf(&b, "   at %s\n", ce.Loc.String())
		}
		if ce.NodePath != "" {
			dim.Fprintf(&b, "   node %s\n", ce.NodePath)
		}
		for _, h := range ce.Hints {
			hint.Fprintf(&b, "   → %s\n", h)
		}
		return b.String()
	}

	var v *meta.Violation
	if errors.As(err, &v) {
		header.Fprintf(&b, "✗ CONSTRAINT VIOLATION [%s]\n", v.ConstraintID)
		body.Fprintf(&b, "   %s\n", v.Message)
		if v.NodePath != "" {
			dim.Fprintf(&b, "   node %s\n", v.NodePath)
		}
		return b.String()
	}

	header.Fprint(&b, "✗ ")
	body.Fprintf(&b, "%v\n", err)
	return b.String()
}

// WriteLoadError writes a formatted load failure to the writer.
func WriteLoadError(w io.Writer, err error, noColor bool) {
	fmt.Fprint(w, FormatLoadError(err, noColor))
}

// FormatSuccess renders a green check line.
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// FormatWarning renders a yellow warning line, optionally with
// suggestions.
func FormatWarning(message string, suggestions []string, noColor bool) string {
	yellow := color.New(color.FgYellow)
	if noColor {
		yellow.DisableColor()
	}
	out := yellow.Sprintf("⚠ %s", message)
	if len(suggestions) > 0 {
		out += yellow.Sprintf("\n   Did you mean: %s?", strings.Join(suggestions, ", "))
	}
	return out
}

func WriteWarning(w io.Writer, message string, suggestions []string, noColor bool) {
	fmt.Fprintln(w, FormatWarning(message, suggestions, noColor))
}

// FormatNotFound renders a lookup miss with fuzzy suggestions drawn from
// the known names.
func FormatNotFound(kind, name string, known []string, noColor bool) string {
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)
	if noColor {
		red.DisableColor()
		yellow.DisableColor()
	}
	out := red.Sprintf("✗ %s not found: %s", kind, name)
	if suggestions := Suggest(name, known); len(suggestions) > 0 {
		out += yellow.Sprintf("\n   Did you mean: %s?", strings.Join(suggestions, ", "))
	}
	return out
}

func WriteNotFound(w io.Writer, kind, name string, known []string, noColor bool) {
	fmt.Fprintln(w, FormatNotFound(kind, name, known, noColor))
}
