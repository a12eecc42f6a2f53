package validators

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Ruff lints Python files with ruff.
type Ruff struct {
	BaseValidator
}

// NewRuff creates the ruff validator.
func NewRuff() *Ruff {
	return &Ruff{BaseValidator{
		ValidatorName:        "ruff",
		ValidatorDescription: "Lint Python files with ruff",
		Scoped:               true,
	}}
}

type ruffDiagnostic struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Location struct {
		Row    int `json:"row"`
		Column int `json:"column"`
	} `json:"location"`
}

// Run executes ruff check over the context's files.
func (v *Ruff) Run(ctx context.Context, vc *Context) *Result {
	args := append([]string{"check", "--output-format=json"}, vc.Files...)
	res, err := vc.exec(ctx, "ruff", args...)
	if err != nil {
		return execFailure(v.Name(), "ruff", vc.timeout(), err)
	}

	switch res.ExitCode {
	case 0:
		return &Result{Name: v.Name(), Status: StatusOK, Message: "no lint issues"}
	case 1:
		details, perr := v.parse(vc, res.Stdout)
		if perr != nil {
			details = outputLines(res.Output(), 50)
		}
		return &Result{
			Name:    v.Name(),
			Status:  StatusFail,
			Message: fmt.Sprintf("%d lint issue(s) found", max(len(details), 1)),
			Details: details,
			FixHint: "Fix automatically where possible: ruff check --fix .",
		}
	}
	return &Result{
		Name:    v.Name(),
		Status:  StatusFail,
		Message: fmt.Sprintf("ruff exited with code %d", res.ExitCode),
		Details: outputLines(res.Stderr, 20),
	}
}

func (v *Ruff) parse(vc *Context, out string) ([]string, error) {
	var diags []ruffDiagnostic
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &diags); err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(diags))
	for _, d := range diags {
		code := d.Code
		if code == "" {
			code = "E"
		}
		lines = append(lines, fmt.Sprintf("%s:%d:%d: %s %s",
			vc.rel(d.Filename), d.Location.Row, d.Location.Column, code, d.Message))
	}
	return lines, nil
}
