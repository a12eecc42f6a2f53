// Package cmd provides the ci-guardian command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ciguardian/ci-guardian/internal/log"
	"github.com/ciguardian/ci-guardian/internal/style"
	"github.com/ciguardian/ci-guardian/internal/ui"
	"github.com/ciguardian/ci-guardian/internal/workspace"
)

// Command group IDs shown in help output.
const (
	GroupSetup = "setup"
	GroupDiag  = "diag"
	GroupHooks = "hooks"
)

var (
	repoFlag    string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "ci-guardian",
	Short: "Git hooks that keep Python commits honest",
	Long: `ci-guardian installs git hooks that lint, format-check and security-scan
staged Python files before every commit, run the test suite before every
push, and revert commits that skipped the hooks with --no-verify.

Run 'ci-guardian install' (start here) inside a repository to set it up.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verboseFlag {
			log.SetLevel(log.LevelDebug)
		}
		ui.InitTheme("")
		ui.ApplyThemeMode()
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupSetup, Title: "Setup:"},
		&cobra.Group{ID: GroupDiag, Title: "Diagnostics:"},
		&cobra.Group{ID: GroupHooks, Title: "Git Hooks:"},
	)
	rootCmd.SetHelpCommandGroupID(GroupDiag)
	rootCmd.SetCompletionCommandGroupID(GroupDiag)

	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "",
		"Repository root (default: discovered from the current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"Enable debug logging")
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	if code, ok := IsSilentExit(err); ok {
		return code
	}
	fmt.Fprintf(os.Stderr, "%s %v\n", style.ErrorPrefix, err)
	return 1
}

// repoRoot resolves the repository the command operates on.
func repoRoot() (string, error) {
	root, err := workspace.Resolve(repoFlag)
	if err != nil {
		return "", err
	}
	return root, nil
}
