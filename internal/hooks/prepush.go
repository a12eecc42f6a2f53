package hooks

import (
	"context"
	"fmt"
	"strings"

	"github.com/ciguardian/ci-guardian/internal/constants"
	"github.com/ciguardian/ci-guardian/internal/events"
	"github.com/ciguardian/ci-guardian/internal/log"
	"github.com/ciguardian/ci-guardian/internal/style"
	"github.com/ciguardian/ci-guardian/internal/ui"
	"github.com/ciguardian/ci-guardian/internal/validators"
)

// PrePush runs the push validators (by default the test suite, then the
// CI workflow). CI_GUARDIAN_SKIP_TESTS=1 skips them.
func PrePush(ctx context.Context, d *Deps) int {
	hook := constants.HookPrePush

	if d.getenv(constants.EnvSkipTests) == "1" {
		style.FprintWarning(d.Stdout, "%s=1 set, skipping pre-push validations", constants.EnvSkipTests)
		return 0
	}

	cfg, err := d.Config()
	if err != nil {
		return d.configFailure(hook, err)
	}
	plan := cfg.Plan(hook)
	if !cfg.Hook(hook).Enabled && len(plan) == 0 {
		fmt.Fprintf(d.Stdout, "%s pre-push hook disabled in configuration\n", ui.RenderInfoIcon())
		return 0
	}

	var files []string
	for _, p := range plan {
		if v, ok := validators.Lookup(p.Name); ok && v.FileScoped() {
			if files, err = validators.FindPythonFiles(d.RepoPath); err != nil {
				log.Warn("%s: listing Python files: %v", hook, err)
			}
			break
		}
	}

	fmt.Fprintf(d.Stdout, "%s Running pre-push validations...\n", ui.Emoji(ui.EmojiSearch, ui.IconInfo))
	if failed := d.runValidators(ctx, cfg, hook, files); len(failed) > 0 {
		d.logEvent(events.TypeValidationFail, hook, events.ValidatorPayload(failed))
		fmt.Fprintf(d.Stderr, "\n%s Some validations failed (%s). Push blocked.\n",
			ui.Emoji(ui.EmojiBlock, ui.IconFail), strings.Join(failed, ", "))
		fmt.Fprintf(d.Stderr, "   Tip: fix the errors or set %s=1 to skip temporarily\n", constants.EnvSkipTests)
		return 1
	}

	fmt.Fprintf(d.Stdout, "\n%s All validations passed. Push allowed.\n", ui.Emoji(ui.EmojiOK, ui.IconPass))
	return 0
}
