//go:build linux

package log

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// isTerminal reports whether w is attached to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	_, err := unix.IoctlGetTermios(int(f.Fd()), unix.TCGETS)
	return err == nil
}
