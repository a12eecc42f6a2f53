package cmd

import (
	"errors"
	"strconv"
)

// SilentExitError ends the process with Code and prints nothing more.
// Hooks and checks return it after they have reported their own outcome;
// git only looks at the exit status.
type SilentExitError struct {
	Code int
}

func (e *SilentExitError) Error() string {
	return "exit status " + strconv.Itoa(e.Code)
}

func NewSilentExit(code int) *SilentExitError {
	return &SilentExitError{Code: code}
}

// IsSilentExit reports the exit code carried anywhere in err's chain.
func IsSilentExit(err error) (int, bool) {
	var se *SilentExitError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}
