package hooks

import (
	"context"
	"fmt"
	"strings"

	"github.com/ciguardian/ci-guardian/internal/constants"
	"github.com/ciguardian/ci-guardian/internal/events"
	"github.com/ciguardian/ci-guardian/internal/style"
	"github.com/ciguardian/ci-guardian/internal/ui"
	"github.com/ciguardian/ci-guardian/internal/validators"
)

// PreCommit validates the staged Python files and, when every planned
// validator passes, stores a fresh commit token. With no Python files
// staged the file validators are skipped and a token is still issued.
func PreCommit(ctx context.Context, d *Deps) int {
	hook := constants.HookPreCommit

	cfg, err := d.Config()
	if err != nil {
		return d.configFailure(hook, err)
	}

	staged, err := d.Git.StagedFiles(ctx)
	if err != nil {
		fmt.Fprintf(d.Stderr, "%s %s: listing staged files: %v\n", style.ErrorPrefix, hook, err)
		return 1
	}
	files := validators.FilterPythonFiles(d.RepoPath, staged)

	if len(files) == 0 {
		fmt.Fprintf(d.Stdout, "%s %s\n", ui.RenderInfoIcon(), ui.RenderMuted("no staged Python files, file validators skipped"))
	} else {
		fmt.Fprintf(d.Stdout, "%s Running pre-commit validations on %d Python file(s)...\n",
			ui.Emoji(ui.EmojiSearch, ui.IconInfo), len(files))
	}

	if failed := d.runValidators(ctx, cfg, hook, files); len(failed) > 0 {
		d.logEvent(events.TypeValidationFail, hook, events.ValidatorPayload(failed))
		fmt.Fprintf(d.Stderr, "\n%s Commit blocked: %s failed.\n", ui.Emoji(ui.EmojiBlock, ui.IconFail), strings.Join(failed, ", "))
		fmt.Fprintln(d.Stderr, "   Fix the issues above and commit again.")
		return 1
	}

	if _, err := d.Protocol.GenerateAndStore(); err != nil {
		fmt.Fprintf(d.Stderr, "%s %s: storing commit token: %v\n", style.ErrorPrefix, hook, err)
		return 1
	}
	d.logEvent(events.TypeTokenIssued, hook, nil)
	return 0
}
