package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ciguardian/ci-guardian/internal/hooks"
)

// hookCmd is what the installed hook scripts call. It is hidden from
// help because users never run it by hand.
var hookCmd = &cobra.Command{
	Use:     "hook <name> [args...]",
	GroupID: GroupHooks,
	Short:   "Run a git hook (called by the installed hook scripts)",
	Hidden:  true,
	Args:    cobra.MinimumNArgs(1),
	// Git passes hook arguments verbatim; do not interpret them as flags.
	DisableFlagParsing: true,
	RunE:               runHook,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

// runHook asks git where the repository is rather than walking up to a
// .git directory: in a linked worktree git runs the shared hooks with the
// worktree, whose .git is a file, as the working directory.
func runHook(cmd *cobra.Command, args []string) error {
	dir := repoFlag
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir = cwd
	}
	d, err := hooks.Discover(cmd.Context(), dir)
	if err != nil {
		return err
	}
	d.Stdout, d.Stderr = cmd.OutOrStdout(), cmd.ErrOrStderr()

	if code := hooks.Run(cmd.Context(), d, args[0], args[1:]); code != 0 {
		return NewSilentExit(code)
	}
	return nil
}
