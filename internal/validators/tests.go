package validators

import (
	"context"
	"errors"
	"fmt"

	"github.com/ciguardian/ci-guardian/internal/constants"
	"github.com/ciguardian/ci-guardian/internal/util"
)

// Tests runs the project's test suite with pytest.
type Tests struct {
	BaseValidator
}

// NewTests creates the tests validator.
func NewTests() *Tests {
	return &Tests{BaseValidator{
		ValidatorName:        "tests",
		ValidatorDescription: "Run the test suite with pytest",
	}}
}

// Run executes pytest -v in the repository.
func (v *Tests) Run(ctx context.Context, vc *Context) *Result {
	timeout := vc.Timeout
	if timeout <= 0 {
		timeout = constants.TestsTimeout
	}
	sub := *vc
	sub.Timeout = timeout
	return runPytest(ctx, &sub, v.Name())
}

func runPytest(ctx context.Context, vc *Context, name string) *Result {
	res, err := vc.exec(ctx, "pytest", "-v")
	if err != nil {
		if errors.Is(err, util.ErrTimeout) {
			return &Result{
				Name:    name,
				Status:  StatusFail,
				Message: fmt.Sprintf("tests exceeded the %s timeout", vc.timeout()),
			}
		}
		return execFailure(name, "pytest", vc.timeout(), err)
	}
	if res.ExitCode == 0 {
		return &Result{Name: name, Status: StatusOK, Message: "tests passed"}
	}
	return &Result{
		Name:    name,
		Status:  StatusFail,
		Message: fmt.Sprintf("tests failed (exit code %d)", res.ExitCode),
		Details: outputLines(res.Stdout, 30),
	}
}
