package validators

import (
	"os"
	"path/filepath"
	"runtime"
)

// VenvDirs are the virtualenv directory names looked for, in priority order.
var VenvDirs = []string{"venv", ".venv", "env", ".env", "ENV"}

// DetectVenv returns the first valid virtualenv under repoPath, or "".
func DetectVenv(repoPath string) string {
	for _, name := range VenvDirs {
		dir := filepath.Join(repoPath, name)
		if ValidVenv(dir) {
			return dir
		}
	}
	return ""
}

// ValidVenv reports whether dir looks like a usable virtualenv: a
// directory holding a regular python executable.
func ValidVenv(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	py, err := os.Stat(PythonExecutable(dir))
	return err == nil && py.Mode().IsRegular()
}

// PythonExecutable returns the interpreter path inside a virtualenv.
func PythonExecutable(venv string) string {
	return venvBin(venv, "python")
}

// InVenv reports whether this process runs inside an activated virtualenv.
func InVenv() bool {
	return os.Getenv("VIRTUAL_ENV") != ""
}

// ToolPath returns the project's virtualenv copy of tool when it exists,
// otherwise tool itself for PATH lookup.
func ToolPath(repoPath, tool string) string {
	if repoPath == "" {
		return tool
	}
	venv := DetectVenv(repoPath)
	if venv == "" {
		return tool
	}
	candidate := venvBin(venv, tool)
	if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
		return candidate
	}
	return tool
}

func venvBin(venv, name string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venv, "Scripts", name+".exe")
	}
	return filepath.Join(venv, "bin", name)
}
