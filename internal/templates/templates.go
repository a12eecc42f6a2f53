// Package templates renders the hook scripts ci-guardian installs.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed hooks/*.tmpl
var hooksFS embed.FS

// HookData is the input to a hook script template.
type HookData struct {
	Hook    string // git hook name, e.g. "pre-commit"
	Binary  string // ci-guardian executable invoked by the script
	Version string
}

// Templates holds the parsed hook templates.
type Templates struct {
	hooks *template.Template
}

// New parses the embedded templates.
func New() (*Templates, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"shquote": shellQuote,
	}).ParseFS(hooksFS, "hooks/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing hook templates: %w", err)
	}
	return &Templates{hooks: t}, nil
}

// RenderHook renders the script for a platform ("posix" or "windows").
// POSIX scripts always use LF line endings; batch scripts keep CRLF.
func (t *Templates) RenderHook(platformName string, data HookData) (string, error) {
	name := "hook.sh.tmpl"
	if platformName == "windows" {
		name = "hook.bat.tmpl"
	}
	if data.Binary == "" {
		data.Binary = "ci-guardian"
	}
	var buf bytes.Buffer
	if err := t.hooks.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s for %s: %w", name, data.Hook, err)
	}
	out := buf.String()
	if platformName != "windows" {
		out = strings.ReplaceAll(out, "\r\n", "\n")
	}
	return out, nil
}

// shellQuote wraps s in single quotes for POSIX sh when it contains
// anything outside a conservative safe set.
func shellQuote(s string) string {
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("/._-+:@", r)) {
			safe = false
			break
		}
	}
	if safe && s != "" {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
