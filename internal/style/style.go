// Package style holds the lipgloss styles and small rendering helpers the
// CLI and hooks share. Colors come from the ui theme.
package style

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/ciguardian/ci-guardian/internal/ui"
)

var (
	pass = lipgloss.NewStyle().Foreground(ui.ColorPass).Bold(true)
	warn = lipgloss.NewStyle().Foreground(ui.ColorWarn).Bold(true)
	fail = lipgloss.NewStyle().Foreground(ui.ColorFail).Bold(true)

	// Dim is for paths, hints and other secondary text.
	Dim  = lipgloss.NewStyle().Foreground(ui.ColorMuted)
	Bold = lipgloss.NewStyle().Bold(true)

	SuccessPrefix = pass.Render(ui.IconPass)
	WarningPrefix = warn.Render(ui.IconWarn)
	ErrorPrefix   = fail.Render(ui.IconFail)
	// ArrowPrefix marks a follow-up action or fix hint.
	ArrowPrefix = lipgloss.NewStyle().Foreground(ui.ColorAccent).Render("→")
)

// FprintWarning writes a "⚠ Warning:" line to w; format and args work
// like fmt.Printf.
func FprintWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", warn.Render(ui.IconWarn+" Warning:"), fmt.Sprintf(format, args...))
}
