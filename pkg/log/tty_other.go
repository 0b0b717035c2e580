//go:build !linux && !darwin

package log

import "io"

// isTerminal reports whether w is attached to a terminal.
// No detection on other platforms; colors stay off.
func isTerminal(w io.Writer) bool {
	return false
}
