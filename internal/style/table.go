package style

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column is one fixed-width table column. Right aligns its cells to the
// right edge, which suits numbers.
type Column struct {
	Name  string
	Width int
	Right bool
}

// Table renders rows under a bold header and a dim rule, indented by two
// spaces. Cells wider than their column are cut and end in "...".
type Table struct {
	columns []Column
	rows    [][]string
}

func NewTable(columns ...Column) *Table {
	return &Table{columns: columns}
}

// AddRow appends a row. Missing trailing cells render empty.
func (t *Table) AddRow(values ...string) *Table {
	t.rows = append(t.rows, values)
	return t
}

func (t *Table) Render() string {
	if len(t.columns) == 0 {
		return ""
	}
	var sb strings.Builder

	header := make([]string, len(t.columns))
	rule := 0
	for i, col := range t.columns {
		header[i] = col.cell(Bold.Render(col.Name), col.Name)
		rule += col.Width
	}
	rule += len(t.columns) - 1
	writeLine(&sb, header)
	writeLine(&sb, []string{Dim.Render(strings.Repeat("─", rule))})

	for _, row := range t.rows {
		cells := make([]string, len(t.columns))
		for i, col := range t.columns {
			var val string
			if i < len(row) {
				val = row[i]
			}
			plain := stripAnsi(val)
			if lipgloss.Width(plain) > col.Width {
				val = truncate(plain, col.Width)
				plain = val
			}
			cells[i] = col.cell(val, plain)
		}
		writeLine(&sb, cells)
	}
	return sb.String()
}

func writeLine(sb *strings.Builder, cells []string) {
	sb.WriteString("  ")
	sb.WriteString(strings.Join(cells, " "))
	sb.WriteString("\n")
}

// cell pads styled to the column width, measuring plain, its text without
// escape codes.
func (c Column) cell(styled, plain string) string {
	gap := c.Width - lipgloss.Width(plain)
	if gap <= 0 {
		return styled
	}
	if c.Right {
		return strings.Repeat(" ", gap) + styled
	}
	return styled + strings.Repeat(" ", gap)
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if width > 3 && len(runes) > width-3 {
		runes = runes[:width-3]
	}
	return string(runes) + "..."
}

func stripAnsi(s string) string {
	var b strings.Builder
	escaped := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\x1b':
			escaped = true
		case escaped:
			escaped = s[i] != 'm'
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// SuggestionBox renders an error message followed by the commands that
// fix it and an optional dim hint.
func SuggestionBox(message string, suggestions []string, hint string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%s %s\n", ErrorPrefix, message)
	if len(suggestions) > 0 {
		sb.WriteString("\n  Try:\n")
		for _, s := range suggestions {
			fmt.Fprintf(&sb, "    • %s\n", s)
		}
	}
	if hint != "" {
		fmt.Fprintf(&sb, "\n  %s\n", Dim.Render(hint))
	}
	return sb.String()
}

// ProgressBar renders only the bar, e.g. "[████░░░░]"; callers print the
// figures next to it.
func ProgressBar(percent int, width int) string {
	percent = max(0, min(percent, 100))
	filled := percent * width / 100
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
