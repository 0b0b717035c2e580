package gcode

import (
	"fmt"
	"strings"
)

// RewriteExtrusion replaces the E-parameter value of a move line with newE,
// leaving every other token byte-for-byte intact. The value is written with
// up to 6 decimals, trailing zeros trimmed, matching slicer output style.
func RewriteExtrusion(line string, newE float64) string {
	return reExtrusion.ReplaceAllStringFunc(line, func(string) string {
		return "E" + FormatValue(newE)
	})
}

// FormatValue formats a G-code numeric value: fixed 6 decimals with
// trailing zeros and a dangling decimal point removed.
func FormatValue(v float64) string {
	s := fmt.Sprintf("%.6f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

// Annotate appends the flow-compensation comment to a rewritten line. The
// tool tag is included only in multi-tool mode:
//
//	G1 X10 E2.3 ; flow_comp T1: 42.0mm3/s x1.100
func Annotate(line string, tool int, multiTool bool, flowRate, multiplier float64) string {
	tag := ""
	if multiTool {
		tag = fmt.Sprintf(" T%d", tool)
	}
	return strings.TrimRight(line, " \t") +
		fmt.Sprintf(" ; flow_comp%s: %.1fmm3/s x%.3f", tag, flowRate, multiplier)
}
