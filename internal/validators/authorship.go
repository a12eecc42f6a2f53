package validators

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// AuthorshipName is the configuration name of the commit message check.
const AuthorshipName = "authorship"

// coAuthorPattern matches a Co-Authored-By trailer naming Claude at the
// start of a line. The name must be followed by whitespace, "<" or the end
// of the line, so "Claudette" does not match.
var coAuthorPattern = regexp.MustCompile(`(?im)^\s*co-authored-by:\s*claude(\s|<|$)`)

// StripComments removes git's "#" comment lines from a commit message.
// Blank lines are kept.
func StripComments(message string) string {
	lines := strings.SplitAfter(message, "\n")
	var b strings.Builder
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}

// HasForbiddenCoAuthor reports whether message carries a Claude
// co-author trailer. The message is NFKC-normalized first so
// compatibility forms such as full-width letters match too.
func HasForbiddenCoAuthor(message string) bool {
	return coAuthorPattern.MatchString(norm.NFKC.String(message))
}

// CheckCommitMessage validates the commit message file at path. A missing
// or unreadable file fails.
func CheckCommitMessage(path string) *Result {
	if path == "" {
		return &Result{
			Name:    AuthorshipName,
			Status:  StatusFail,
			Message: "no commit message file given",
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return &Result{
			Name:    AuthorshipName,
			Status:  StatusFail,
			Message: fmt.Sprintf("commit message file not readable: %v", err),
		}
	}
	if HasForbiddenCoAuthor(StripComments(string(data))) {
		return &Result{
			Name:    AuthorshipName,
			Status:  StatusFail,
			Message: "Commit rejected: Co-Authored-By: Claude detected",
			Details: []string{"CI Guardian does not allow Claude to be added as a co-author."},
			FixHint: "Remove the Co-Authored-By: Claude line from the commit message",
		}
	}
	return &Result{Name: AuthorshipName, Status: StatusOK, Message: "authorship ok"}
}
