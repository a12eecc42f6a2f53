package hooks

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ciguardian/ci-guardian/internal/constants"
	"github.com/ciguardian/ci-guardian/internal/events"
	"github.com/ciguardian/ci-guardian/internal/token"
	"github.com/ciguardian/ci-guardian/internal/ui"
)

// PostCommit consumes the commit token. A commit without a valid token
// skipped pre-commit and is reverted. Nothing is printed on success.
func PostCommit(ctx context.Context, d *Deps) int {
	hook := constants.HookPostCommit

	var subject string
	if !d.Protocol.Pending() {
		subject, _ = d.Git.HeadSubject(ctx)
	}

	v := d.Protocol.Verify(ctx)
	if v.Passed {
		d.logEvent(events.TypeTokenConsumed, hook, nil)
		return 0
	}

	reason := "no valid commit token"
	if v.Err != nil {
		reason = v.Err.Error()
	}
	d.logEvent(events.TypeBypassDetected, hook, map[string]interface{}{"reason": reason})
	if v.Reverted {
		d.logEvent(events.TypeCommitReverted, hook, events.RevertPayload(v.Outcome.String(), v.Message, subject))
	} else {
		d.logEvent(events.TypeRevertFailed, hook, events.RevertPayload(v.Outcome.String(), v.Message, subject))
	}

	printBypass(d, v, subject)
	return 1
}

func printBypass(d *Deps, v token.Verification, subject string) {
	w := d.Stderr
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", ui.EmojiAlarm, ui.RenderFail("BYPASS DETECTED: this commit did not pass the ci-guardian pre-commit hook."))
	fmt.Fprintln(w, "   It was most likely created with 'git commit --no-verify'.")
	if v.Err != nil {
		fmt.Fprintf(w, "   Commit token rejected: %v\n", v.Err)
	}
	if v.Reverted {
		fmt.Fprintf(w, "   %s %s\n", ui.RenderPassIcon(), v.Message)
	} else {
		fmt.Fprintf(w, "   %s Could not revert the commit: %s\n", ui.RenderFailIcon(), v.Message)
		fmt.Fprintln(w, "   Undo it manually with: git reset --soft HEAD~1")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s Commit again without --no-verify so the validations run:\n", ui.EmojiBulb)
	if subject != "" {
		fmt.Fprintf(w, "   git commit -m %s\n", strconv.Quote(subject))
	} else {
		fmt.Fprintln(w, "   git commit")
	}
}
