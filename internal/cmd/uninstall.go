package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ciguardian/ci-guardian/internal/events"
	"github.com/ciguardian/ci-guardian/internal/installer"
	"github.com/ciguardian/ci-guardian/internal/platform"
	"github.com/ciguardian/ci-guardian/internal/style"
)

var uninstallYes bool

var uninstallCmd = &cobra.Command{
	Use:     "uninstall",
	GroupID: GroupSetup,
	Short:   "Remove the ci-guardian git hooks",
	Long: `Remove the hooks ci-guardian installed.

Hooks written by other tools are left in place. The configuration file
and the audit log are kept.

Examples:
  ci-guardian uninstall
  ci-guardian uninstall --yes     # Skip confirmation`,
	RunE: runUninstall,
}

func init() {
	uninstallCmd.Flags().BoolVarP(&uninstallYes, "yes", "y", false,
		"Skip the confirmation prompt")
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	repo, err := repoRoot()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	inst := installer.New(platform.Current())

	installed, err := inst.ListInstalled(repo)
	if err != nil {
		return err
	}
	if len(installed) == 0 {
		fmt.Fprintln(out, "No CI Guardian hooks installed")
		return nil
	}

	if !uninstallYes {
		fmt.Fprintln(out, "The following hooks will be removed:")
		for _, hook := range installed {
			fmt.Fprintf(out, "  • %s\n", hook)
		}
		fmt.Fprintln(out)
		if !confirm(cmd.InOrStdin(), out, "Continue? [y/N] ") {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	var removed, problems []string
	for _, hook := range installed {
		ok, err := inst.Uninstall(repo, hook)
		var foreign *installer.NotOwnedHookError
		switch {
		case errors.As(err, &foreign):
			fmt.Fprintf(out, "  %s Skipped %s: not installed by ci-guardian\n", style.WarningPrefix, hook)
		case err != nil:
			problems = append(problems, fmt.Sprintf("%s: %v", hook, err))
		case ok:
			removed = append(removed, hook)
			fmt.Fprintf(out, "  %s Removed %s\n", style.SuccessPrefix, hook)
		}
	}
	if len(removed) > 0 {
		events.Log(repo, events.TypeUninstall, "", events.HooksPayload(removed))
	}

	if len(problems) > 0 {
		fmt.Fprintf(out, "\n%s Some hooks could not be removed:\n", style.WarningPrefix)
		for _, p := range problems {
			fmt.Fprintf(out, "  • %s\n", p)
		}
		return fmt.Errorf("uninstall incomplete")
	}
	fmt.Fprintf(out, "\n%s Removed %d hook(s)\n", style.SuccessPrefix, len(removed))
	return nil
}

// confirm prints prompt and reports whether the answer was yes.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	response, _ := bufio.NewReader(in).ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
