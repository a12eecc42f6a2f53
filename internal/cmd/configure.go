package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ciguardian/ci-guardian/internal/config"
	"github.com/ciguardian/ci-guardian/internal/style"
)

var configureYes bool

var configureCmd = &cobra.Command{
	Use:     "configure",
	GroupID: GroupSetup,
	Short:   "Write the default .ci-guardian.yaml",
	Long: `Write the default configuration to .ci-guardian.yaml at the repository
root, sealed with an integrity hash.

Asks before replacing an existing file unless --yes is given. After
editing the file by hand, run 'ci-guardian config rehash'.`,
	RunE: runConfigure,
}

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: GroupSetup,
	Short:   "Manage the ci-guardian configuration",
	RunE:    requireSubcommand,
}

var configRehashCmd = &cobra.Command{
	Use:   "rehash",
	Short: "Recompute the integrity hash after a manual edit",
	Long: `Recompute the _integrity hash of .ci-guardian.yaml.

Hooks refuse to run while the recorded hash does not match the file.
Review your edits, then run this command to accept them.`,
	Args: cobra.NoArgs,
	RunE: runConfigRehash,
}

func init() {
	configureCmd.Flags().BoolVarP(&configureYes, "yes", "y", false,
		"Overwrite an existing configuration without asking")
	configCmd.AddCommand(configRehashCmd)
	rootCmd.AddCommand(configureCmd, configCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	repo, err := repoRoot()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	path := config.Path(repo)

	_, statErr := os.Stat(path)
	exists := statErr == nil
	if exists && !configureYes {
		if !confirm(cmd.InOrStdin(), out, fmt.Sprintf("%s already exists. Overwrite? [y/N] ", path)) {
			fmt.Fprintln(out, "Cancelled")
			return nil
		}
	} else if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
		return statErr
	}

	if err := config.WriteDefault(path, exists); err != nil {
		return fmt.Errorf("writing configuration: %w", err)
	}
	fmt.Fprintf(out, "%s Wrote %s\n", style.SuccessPrefix, path)
	return nil
}

func runConfigRehash(cmd *cobra.Command, args []string) error {
	repo, err := repoRoot()
	if err != nil {
		return err
	}
	path := config.Path(repo)
	if err := config.RegenerateHash(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s not found; run 'ci-guardian configure' first", path)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Integrity hash updated for %s\n", style.SuccessPrefix, path)
	return nil
}

func requireSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("requires a subcommand")
	}
	return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
}
