package hooks

import (
	"context"
	"fmt"

	"github.com/ciguardian/ci-guardian/internal/constants"
	"github.com/ciguardian/ci-guardian/internal/events"
	"github.com/ciguardian/ci-guardian/internal/log"
	"github.com/ciguardian/ci-guardian/internal/style"
	"github.com/ciguardian/ci-guardian/internal/validators"
)

// CommitMsg checks the commit message file named by args[0]. It fails
// when no file is given, when the file cannot be read, or when the message
// carries a forbidden co-author trailer.
func CommitMsg(_ context.Context, d *Deps, args []string) int {
	hook := constants.HookCommitMsg

	if len(args) == 0 || args[0] == "" {
		fmt.Fprintf(d.Stderr, "%s %s: missing commit message file argument\n", style.ErrorPrefix, hook)
		return 1
	}

	cfg, err := d.Config()
	if err != nil {
		return d.configFailure(hook, err)
	}

	check := false
	for _, p := range cfg.Plan(hook) {
		if p.Name == validators.AuthorshipName {
			check = true
			continue
		}
		log.Warn("%s: validator %q does not apply to commit messages, skipped", hook, p.Name)
	}
	if !check {
		return 0
	}

	res := validators.CheckCommitMessage(args[0])
	if res.Passed() {
		return 0
	}
	PrintResult(d.Stderr, res)
	d.logEvent(events.TypeValidationFail, hook, events.ValidatorPayload([]string{res.Name}))
	return 1
}
