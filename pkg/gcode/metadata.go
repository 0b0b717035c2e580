package gcode

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Metadata carries printer/material header fields recognized in slicer
// comment lines. Zero values mean "not found"; the caller applies defaults.
type Metadata struct {
	FilamentType     string
	FilamentDiameter float64
	LayerHeight      float64
	LineWidth        float64
}

// Metadata patterns. Slicers emit "; key = value" comments; the filament
// diameter additionally appears as an M200 D command on some profiles.
var (
	reMetaFilamentType = regexp.MustCompile(`(?i)filament_type\s*=\s*(\w+)`)
	reMetaDiameter     = regexp.MustCompile(`(?i)filament_diameter\s*=\s*([\-+]?\d*\.?\d+)`)
	reMetaM200         = regexp.MustCompile(`(?i)M200\s*D([\-+]?\d*\.?\d+)`)
	reMetaLayerHeight  = regexp.MustCompile(`(?i)layer_height\s*=\s*([\-+]?\d*\.?\d+)`)
	reMetaLineWidth    = regexp.MustCompile(`(?i)line_width\s*=\s*([\-+]?\d*\.?\d+)`)
)

// ScanLines extracts metadata from the given lines. First match wins per
// key; unrecognized or malformed lines are ignored. limit bounds the number
// of lines scanned (header region); limit <= 0 scans everything, which some
// slicers need for footer metadata.
func ScanLines(lines []string, limit int) Metadata {
	var md Metadata
	for i, line := range lines {
		if limit > 0 && i >= limit {
			break
		}
		md.scanLine(line)
		if md.complete() {
			break
		}
	}
	return md
}

// ScanMetadata extracts metadata from a line stream. The body is not
// consumed beyond the scan limit.
func ScanMetadata(r io.Reader, limit int) Metadata {
	var md Metadata
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLen)
	for i := 0; scanner.Scan(); i++ {
		if limit > 0 && i >= limit {
			break
		}
		md.scanLine(scanner.Text())
		if md.complete() {
			break
		}
	}
	return md
}

func (md *Metadata) scanLine(line string) {
	if md.FilamentType == "" {
		if m := reMetaFilamentType.FindStringSubmatch(line); m != nil {
			md.FilamentType = strings.ToUpper(m[1])
		}
	}
	if md.FilamentDiameter == 0 {
		if m := reMetaDiameter.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				md.FilamentDiameter = v
			}
		} else if m := reMetaM200.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				md.FilamentDiameter = v
			}
		}
	}
	if md.LayerHeight == 0 {
		if m := reMetaLayerHeight.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				md.LayerHeight = v
			}
		}
	}
	if md.LineWidth == 0 {
		if m := reMetaLineWidth.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				md.LineWidth = v
			}
		}
	}
}

func (md *Metadata) complete() bool {
	return md.FilamentType != "" && md.FilamentDiameter != 0 &&
		md.LayerHeight != 0 && md.LineWidth != 0
}
