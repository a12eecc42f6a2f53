package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ciguardian/ci-guardian/internal/config"
	"github.com/ciguardian/ci-guardian/internal/events"
	"github.com/ciguardian/ci-guardian/internal/installer"
	"github.com/ciguardian/ci-guardian/internal/platform"
	"github.com/ciguardian/ci-guardian/internal/style"
	"github.com/ciguardian/ci-guardian/internal/ui"
	"github.com/ciguardian/ci-guardian/internal/validators"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: GroupDiag,
	Short:   "Show installed hooks, configuration and recent bypasses",
	RunE:    runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	repo, err := repoRoot()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	inst := installer.New(platform.Current())
	if !installer.IsGitRepository(repo) {
		return &installer.NotAGitRepositoryError{Path: repo}
	}

	fmt.Fprintf(out, "%s %s\n", ui.RenderBold("ci-guardian"), Version)
	fmt.Fprintf(out, "Repository: %s\n\n", repo)

	fmt.Fprintln(out, ui.RenderCategory("Hooks"))
	var missing []string
	for _, hook := range installer.DefaultHooks {
		owned, err := inst.Owns(repo, hook)
		switch {
		case err != nil:
			fmt.Fprintf(out, "  %s %s: %v\n", ui.RenderFailIcon(), hook, err)
			missing = append(missing, hook)
		case owned:
			fmt.Fprintf(out, "  %s %s\n", ui.RenderPassIcon(), hook)
		case inst.Exists(repo, hook):
			fmt.Fprintf(out, "  %s %s %s\n", ui.RenderWarnIcon(), hook, ui.RenderMuted("(installed by another tool)"))
			missing = append(missing, hook)
		default:
			fmt.Fprintf(out, "  %s %s\n", ui.RenderFailIcon(), hook)
			missing = append(missing, hook)
		}
	}
	total := len(installer.DefaultHooks)
	installed := total - len(missing)
	pct := installed * 100 / total
	fmt.Fprintf(out, "\n  %d/%d (%d%%) %s\n", installed, total, pct, style.ProgressBar(pct, 20))
	if len(missing) > 0 {
		fmt.Fprintf(out, "  Missing: %s\n", strings.Join(missing, ", "))
	}
	if installed == 0 {
		fmt.Fprintf(out, "  %s Run %s to set up the hooks\n", style.ArrowPrefix, style.Bold.Render("ci-guardian install"))
	}

	fmt.Fprintln(out)
	printConfigStatus(out, repo)
	fmt.Fprintln(out)
	printBypassStatus(out, repo)
	return nil
}

func printConfigStatus(w io.Writer, repo string) {
	fmt.Fprintln(w, ui.RenderCategory("Configuration"))
	cfg, err := config.Load(repo)
	if err != nil {
		fmt.Fprintf(w, "  %s %v\n", ui.RenderFailIcon(), err)
		return
	}
	source := "built-in defaults"
	if cfg.Source != "" {
		source = cfg.Source
	}
	fmt.Fprintf(w, "  Source: %s\n\n", source)

	title := cases.Title(language.English)
	table := style.NewTable(
		style.Column{Name: "VALIDATOR", Width: 16},
		style.Column{Name: "ENABLED", Width: 8},
		style.Column{Name: "PROTECTED", Width: 10},
		style.Column{Name: "TIMEOUT", Width: 8, Right: true},
	)
	for _, name := range validators.Names() {
		vc := cfg.Validator(name)
		table.AddRow(title.String(name), yesNo(vc.Enabled), yesNo(vc.Protected), strconv.Itoa(vc.Timeout)+"s")
	}
	fmt.Fprint(w, table.Render())
}

func printBypassStatus(w io.Writer, repo string) {
	fmt.Fprintln(w, ui.RenderCategory("Bypasses"))
	last := events.Last(repo, events.TypeBypassDetected)
	if last == nil {
		fmt.Fprintf(w, "  %s none recorded\n", ui.RenderPassIcon())
		return
	}
	fmt.Fprintf(w, "  %s last bypass detected at %s\n", ui.RenderWarnIcon(), last.Timestamp)
	if rev := events.Last(repo, events.TypeCommitReverted); rev != nil {
		if subject, ok := rev.Payload["subject"].(string); ok && subject != "" {
			fmt.Fprintf(w, "    last reverted commit: %q\n", subject)
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
