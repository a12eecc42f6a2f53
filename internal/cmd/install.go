package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ciguardian/ci-guardian/internal/config"
	"github.com/ciguardian/ci-guardian/internal/events"
	"github.com/ciguardian/ci-guardian/internal/installer"
	"github.com/ciguardian/ci-guardian/internal/log"
	"github.com/ciguardian/ci-guardian/internal/platform"
	"github.com/ciguardian/ci-guardian/internal/style"
)

var installForce bool

var installCmd = &cobra.Command{
	Use:     "install",
	GroupID: GroupSetup,
	Short:   "Install the ci-guardian git hooks (start here)",
	Long: `Install the ci-guardian hooks into the repository's .git/hooks directory.

Installed hooks:
  pre-commit   ruff, black and bandit on staged Python files; issues a commit token
  commit-msg   rejects Co-Authored-By: Claude trailers
  post-commit  reverts commits that did not pass pre-commit (--no-verify)
  pre-push     runs the test suite

Hooks installed by other tools are never overwritten. Use --force to
reinstall hooks that ci-guardian installed earlier.

Examples:
  ci-guardian install
  ci-guardian install --force
  ci-guardian install --repo ~/src/project`,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVarP(&installForce, "force", "f", false,
		"Reinstall hooks previously installed by ci-guardian")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	repo, err := repoRoot()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	inst := installer.New(platform.Current())
	if !installer.IsGitRepository(repo) {
		return &installer.NotAGitRepositoryError{Path: repo}
	}

	existing, err := inst.ListInstalled(repo)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		if !installForce {
			fmt.Fprint(out, style.SuggestionBox(
				fmt.Sprintf("ci-guardian hooks already installed: %s", strings.Join(existing, ", ")),
				[]string{"ci-guardian install --force", "ci-guardian status"},
				"--force replaces only hooks that ci-guardian wrote"))
			return NewSilentExit(1)
		}
		for _, hook := range existing {
			if _, err := inst.Uninstall(repo, hook); err != nil {
				return fmt.Errorf("removing old %s hook: %w", hook, err)
			}
			log.Debug("install: removed previous %s hook", hook)
		}
	}

	done, err := inst.InstallDefault(repo, hookBinary(), Version)
	for _, hook := range done {
		fmt.Fprintf(out, "  %s Installed %s\n", style.SuccessPrefix, hook)
	}
	if len(done) > 0 {
		events.Log(repo, events.TypeInstall, "", events.HooksPayload(done))
	}
	if err != nil {
		fmt.Fprint(out, style.SuggestionBox(err.Error(), installSuggestions(err), ""))
		return NewSilentExit(1)
	}

	fmt.Fprintf(out, "\n%s ci-guardian hooks installed in %s\n", style.SuccessPrefix, repo)
	if _, err := os.Stat(config.Path(repo)); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(out, "Using default settings. Run %s to write %s.\n",
			style.Dim.Render("ci-guardian configure"), style.Dim.Render(".ci-guardian.yaml"))
	}
	return nil
}

// hookBinary is the executable the hook scripts invoke.
func hookBinary() string {
	exe, err := os.Executable()
	if err != nil || exe == "" {
		return "ci-guardian"
	}
	return exe
}

func installSuggestions(err error) []string {
	var exists *installer.HookAlreadyExistsError
	switch {
	case errors.As(err, &exists):
		return []string{
			fmt.Sprintf("Move the existing hook aside: mv %s %s.bak", exists.Path, exists.Path),
			"ci-guardian install",
		}
	case errors.Is(err, installer.ErrEnvironment):
		return []string{"git init", "ci-guardian install --repo <repository root>"}
	}
	return nil
}
