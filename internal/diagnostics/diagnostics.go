// Package diagnostics formats source-located errors for terminal output:
// a file:line:column header followed by the offending source line and the
// line immediately before and after it, with a caret under the column.
package diagnostics

import (
	"fmt"
	"strings"
)

// Format renders msg located at (line, col) in source, labeled filename.
// line and col are 1-based; a non-positive line skips the source excerpt.
func Format(filename, source, msg string, line, col int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d:%d: %s\n", filename, line, col, msg)
	if line <= 0 {
		return b.String()
	}
	lines := strings.Split(source, "\n")
	idx := line - 1
	if idx < 0 || idx >= len(lines) {
		return b.String()
	}
	for i := idx - 1; i <= idx+1; i++ {
		if i < 0 || i >= len(lines) {
			continue
		}
		fmt.Fprintf(&b, "%5d | %s\n", i+1, lines[i])
		if i == idx {
			pad := col - 1
			if pad < 0 {
				pad = 0
			}
			fmt.Fprintf(&b, "      | %s^\n", strings.Repeat(" ", pad))
		}
	}
	return b.String()
}
