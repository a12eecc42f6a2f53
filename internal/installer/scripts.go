package installer

import (
	"github.com/ciguardian/ci-guardian/internal/constants"
	"github.com/ciguardian/ci-guardian/internal/templates"
)

// DefaultHooks are the hooks `ci-guardian install` manages, in install order.
var DefaultHooks = []string{
	constants.HookPreCommit,
	constants.HookCommitMsg,
	constants.HookPostCommit,
	constants.HookPrePush,
}

// RenderScript renders the script that forwards hook to the ci-guardian binary.
func (i *Installer) RenderScript(hook, binary, version string) (string, error) {
	tmpl, err := templates.New()
	if err != nil {
		return "", err
	}
	return tmpl.RenderHook(i.platform.Name(), templates.HookData{
		Hook:    hook,
		Binary:  binary,
		Version: version,
	})
}

// InstallScript installs content for any managed hook, routing commit-msg
// through its dedicated entry point.
func (i *Installer) InstallScript(repoPath, hook, content string) error {
	if hook == constants.HookCommitMsg {
		return i.InstallCommitMsg(repoPath, content)
	}
	return i.Install(repoPath, hook, content)
}

// InstallDefault renders and installs every hook in DefaultHooks. It stops
// at the first failure and returns the hooks installed so far.
func (i *Installer) InstallDefault(repoPath, binary, version string) ([]string, error) {
	var done []string
	for _, hook := range DefaultHooks {
		content, err := i.RenderScript(hook, binary, version)
		if err != nil {
			return done, err
		}
		if err := i.InstallScript(repoPath, hook, content); err != nil {
			return done, err
		}
		done = append(done, hook)
	}
	return done, nil
}
