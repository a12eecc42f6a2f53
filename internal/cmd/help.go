package cmd

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ciguardian/ci-guardian/internal/ui"
)

var (
	groupHeaderRE   = regexp.MustCompile(`(?m)^([A-Z][A-Za-z &]+:)\s*$`)
	sectionHeaderRE = regexp.MustCompile(`(?m)^(Examples|Flags|Usage|Global Flags|Aliases|Available Commands):`)
	cmdLineRE       = regexp.MustCompile(`(?m)^(  )([a-z][a-z0-9]*(?:-[a-z0-9]+)*)(\s{2,})(.*)$`)
	flagLineRE      = regexp.MustCompile(`(?m)^(\s+)(-\w,\s+--[\w-]+|--[\w-]+)(\s+)(string|int|duration|bool)?(\s*.*)$`)
	defaultRE       = regexp.MustCompile(`(\(default[^)]*\))`)
	entryRE         = regexp.MustCompile(`(\(start here\))`)
	cmdRefRE        = regexp.MustCompile(`'([a-z][a-z0-9 -]+)'`)
)

// colorizedHelpFunc prints cobra's help (long description plus usage)
// with group headers, command names and flags highlighted.
func colorizedHelpFunc(cmd *cobra.Command, args []string) {
	var output strings.Builder
	if cmd.Long != "" {
		output.WriteString(cmd.Long)
		output.WriteString("\n\n")
	} else if cmd.Short != "" {
		output.WriteString(cmd.Short)
		output.WriteString("\n\n")
	}
	output.WriteString(cmd.UsageString())
	fmt.Fprint(cmd.OutOrStdout(), colorizeHelpOutput(output.String()))
}

func colorizeHelpOutput(help string) string {
	result := groupHeaderRE.ReplaceAllStringFunc(help, func(match string) string {
		return ui.RenderAccent(strings.TrimSpace(match))
	})
	result = sectionHeaderRE.ReplaceAllStringFunc(result, ui.RenderAccent)

	// "  install   Install the ci-guardian git hooks (start here)"
	result = cmdLineRE.ReplaceAllStringFunc(result, func(match string) string {
		parts := cmdLineRE.FindStringSubmatch(match)
		if len(parts) != 5 {
			return match
		}
		desc := cmdRefRE.ReplaceAllStringFunc(parts[4], func(ref string) string {
			return "'" + ui.RenderBold(ref[1:len(ref)-1]) + "'"
		})
		desc = entryRE.ReplaceAllStringFunc(desc, ui.RenderAccent)
		return parts[1] + ui.RenderBold(parts[2]) + parts[3] + desc
	})

	// "  -f, --force   Reinstall hooks (default false)"
	result = flagLineRE.ReplaceAllStringFunc(result, func(match string) string {
		parts := flagLineRE.FindStringSubmatch(match)
		if len(parts) < 6 {
			return match
		}
		desc := defaultRE.ReplaceAllStringFunc(parts[5], ui.RenderMuted)
		if parts[4] != "" {
			return parts[1] + ui.RenderBold(parts[2]) + parts[3] + ui.RenderMuted(parts[4]) + desc
		}
		return parts[1] + ui.RenderBold(parts[2]) + parts[3] + desc
	})
	return result
}

func init() {
	rootCmd.SetHelpFunc(colorizedHelpFunc)
}
