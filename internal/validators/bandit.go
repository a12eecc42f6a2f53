package validators

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ciguardian/ci-guardian/internal/util"
)

// Bandit scans Python files for security issues. HIGH severity findings
// block; lower severities are reported as warnings.
type Bandit struct {
	BaseValidator
}

// NewBandit creates the bandit validator.
func NewBandit() *Bandit {
	return &Bandit{BaseValidator{
		ValidatorName:        "bandit",
		ValidatorDescription: "Security scan of Python files with bandit",
		Scoped:               true,
	}}
}

type banditReport struct {
	Results []banditIssue `json:"results"`
}

type banditIssue struct {
	Filename   string `json:"filename"`
	LineNumber int    `json:"line_number"`
	TestID     string `json:"test_id"`
	Severity   string `json:"issue_severity"`
	Confidence string `json:"issue_confidence"`
	Text       string `json:"issue_text"`
}

// Run executes bandit over the context's files.
func (v *Bandit) Run(ctx context.Context, vc *Context) *Result {
	args := append([]string{"-f", "json", "-q"}, vc.Files...)
	res, err := vc.exec(ctx, "bandit", args...)
	if util.IsNotFound(err) {
		return &Result{
			Name:    v.Name(),
			Status:  StatusWarning,
			Message: "bandit is not installed, security scan skipped",
			FixHint: "Install with: pip install bandit",
		}
	}
	if err != nil {
		return execFailure(v.Name(), "bandit", vc.timeout(), err)
	}

	var report banditReport
	if perr := json.Unmarshal([]byte(strings.TrimSpace(res.Stdout)), &report); perr != nil {
		if res.ExitCode == 0 {
			return &Result{Name: v.Name(), Status: StatusOK, Message: "no security issues"}
		}
		return &Result{
			Name:    v.Name(),
			Status:  StatusFail,
			Message: fmt.Sprintf("bandit exited with code %d", res.ExitCode),
			Details: outputLines(res.Output(), 20),
		}
	}

	var high, other []string
	for _, issue := range report.Results {
		line := fmt.Sprintf("%s:%d: [%s %s] %s",
			vc.rel(issue.Filename), issue.LineNumber, issue.TestID, strings.ToUpper(issue.Severity), issue.Text)
		if strings.EqualFold(issue.Severity, "HIGH") {
			high = append(high, line)
		} else {
			other = append(other, line)
		}
	}

	switch {
	case len(high) > 0:
		return &Result{
			Name:    v.Name(),
			Status:  StatusFail,
			Message: fmt.Sprintf("%d HIGH severity security issue(s)", len(high)),
			Details: append(high, other...),
			FixHint: "Fix the HIGH severity findings before committing",
		}
	case len(other) > 0:
		return &Result{
			Name:    v.Name(),
			Status:  StatusWarning,
			Message: fmt.Sprintf("%d advisory security finding(s)", len(other)),
			Details: other,
		}
	}
	return &Result{Name: v.Name(), Status: StatusOK, Message: "no security issues"}
}
