package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ciguardian/ci-guardian/internal/config"
	"github.com/ciguardian/ci-guardian/internal/hooks"
	"github.com/ciguardian/ci-guardian/internal/style"
	"github.com/ciguardian/ci-guardian/internal/ui"
	"github.com/ciguardian/ci-guardian/internal/validators"
)

// checkValidators run by `ci-guardian check`, in order.
var checkValidators = []string{"ruff", "black"}

// checkRunner lets tests replace the external tool runner.
var checkRunner validators.Runner

var checkCmd = &cobra.Command{
	Use:     "check",
	GroupID: GroupDiag,
	Short:   "Run ruff and black over every Python file in the repository",
	Long: `Run the lint and format checks over the whole project instead of only
the staged files. Virtualenvs, caches and build directories are skipped.

Exits 1 when any check fails.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	repo, err := repoRoot()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	cfg, err := config.Load(repo)
	if err != nil {
		return err
	}
	files, err := validators.FindPythonFiles(repo)
	if err != nil {
		return fmt.Errorf("listing Python files: %w", err)
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "%s no Python files found\n", ui.RenderInfoIcon())
		return nil
	}
	fmt.Fprintf(out, "Checking %d Python file(s)...\n", len(files))

	var failed []string
	for _, name := range checkValidators {
		v, ok := validators.Lookup(name)
		if !ok {
			continue
		}
		res := v.Run(cmd.Context(), &validators.Context{
			RepoPath: repo,
			Files:    files,
			Timeout:  cfg.TimeoutFor(name),
			Options:  cfg.Validator(name).Options,
			Run:      checkRunner,
		})
		hooks.PrintResult(out, res)
		if !res.Passed() {
			failed = append(failed, name)
		}
	}

	if len(failed) > 0 {
		fmt.Fprintf(out, "\n%s Checks failed: %s\n", style.ErrorPrefix, strings.Join(failed, ", "))
		return NewSilentExit(1)
	}
	fmt.Fprintf(out, "\n%s All checks passed\n", style.SuccessPrefix)
	return nil
}
