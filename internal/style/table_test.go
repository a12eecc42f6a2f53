package style

import (
	"strings"
	"testing"
)

func TestTableRender(t *testing.T) {
	tbl := NewTable(
		Column{Name: "HOOK", Width: 12},
		Column{Name: "STATE", Width: 9},
	)
	tbl.AddRow("pre-commit", "✓ ok")
	tbl.AddRow("post-commit")
	out := stripAnsi(tbl.Render())

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "  HOOK") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "─") {
		t.Errorf("separator = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "  pre-commit   ✓ ok") {
		t.Errorf("row = %q", lines[2])
	}
}

func TestTableTruncates(t *testing.T) {
	tbl := NewTable(Column{Name: "N", Width: 6}, Column{Name: "SECS", Width: 5, Right: true})
	tbl.AddRow("pre-rebase", "300s")
	out := stripAnsi(tbl.Render())
	if !strings.Contains(out, "pre...") {
		t.Errorf("long value not truncated:\n%s", out)
	}
	if !strings.Contains(out, "pre...  300s\n") {
		t.Errorf("right-aligned cell not padded on the left:\n%s", out)
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		percent int
		want    string
	}{
		{75, "[███░]"},
		{0, "[░░░░]"},
		{150, "[████]"},
		{-5, "[░░░░]"},
	}
	for _, tt := range tests {
		if got := ProgressBar(tt.percent, 4); got != tt.want {
			t.Errorf("ProgressBar(%d, 4) = %q, want %q", tt.percent, got, tt.want)
		}
	}
}

func TestSuggestionBox(t *testing.T) {
	out := SuggestionBox("hooks already installed", []string{"ci-guardian install --force"}, "existing hooks are kept")
	for _, want := range []string{"hooks already installed", "Try:", "ci-guardian install --force", "existing hooks are kept"} {
		if !strings.Contains(out, want) {
			t.Errorf("SuggestionBox missing %q:\n%s", want, out)
		}
	}
}
