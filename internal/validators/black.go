package validators

import (
	"context"
	"fmt"
	"strings"
)

// Black checks Python formatting with black.
type Black struct {
	BaseValidator
}

// NewBlack creates the black validator.
func NewBlack() *Black {
	return &Black{BaseValidator{
		ValidatorName:        "black",
		ValidatorDescription: "Check Python formatting with black",
		Scoped:               true,
	}}
}

// Run executes black --check over the context's files.
func (v *Black) Run(ctx context.Context, vc *Context) *Result {
	args := append([]string{"--check"}, vc.Files...)
	res, err := vc.exec(ctx, "black", args...)
	if err != nil {
		return execFailure(v.Name(), "black", vc.timeout(), err)
	}

	switch res.ExitCode {
	case 0:
		return &Result{Name: v.Name(), Status: StatusOK, Message: "formatting ok"}
	case 1:
		var files []string
		for _, line := range outputLines(res.Output(), 0) {
			if rest, ok := strings.CutPrefix(line, "would reformat "); ok {
				files = append(files, vc.rel(strings.TrimSpace(rest)))
			}
		}
		return &Result{
			Name:    v.Name(),
			Status:  StatusFail,
			Message: fmt.Sprintf("%d file(s) would be reformatted", max(len(files), 1)),
			Details: files,
			FixHint: "Format with: black .",
		}
	}
	return &Result{
		Name:    v.Name(),
		Status:  StatusFail,
		Message: fmt.Sprintf("black exited with code %d", res.ExitCode),
		Details: outputLines(res.Stderr, 20),
	}
}
