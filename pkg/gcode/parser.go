// Package gcode provides streaming G-code line classification for the flow
// compensator: linear-move parsing with carry-forward position state,
// tool-change detection, header metadata extraction and extrusion-field
// rewriting.
//
// Only numeric-axis linear moves (G0/G1), line-leading tool-change tokens
// (T<n>) and comment metadata are interpreted; every other line is opaque
// passthrough.
package gcode

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"flowcomp-go/pkg/errors"
)

// Kind classifies a G-code line.
type Kind int

const (
	// KindOther is a comment, blank line or unrecognized command;
	// passthrough, no state change beyond the line counter.
	KindOther Kind = iota

	// KindMove is a G0/G1 linear move.
	KindMove

	// KindToolChange is a T<n> tool-change token.
	KindToolChange
)

// maxLineLen bounds scanner buffers; slicer output stays far below this.
const maxLineLen = 1024 * 1024

var (
	reLinearMove = regexp.MustCompile(`^G[01](\D|$)`)
	reToolChange = regexp.MustCompile(`^T(\d+)`)
	reExtrusion  = regexp.MustCompile(`E([\-+]?\d*\.?\d+)`)
	reFeedrate   = regexp.MustCompile(`F([\-+]?\d*\.?\d+)`)
	reAxis       = regexp.MustCompile(`([XYZ])([\-+]?\d*\.?\d+)`)
)

// Position is the carry-forward machine state: the last explicitly
// commanded coordinate per axis. G-code omits unchanged axes, so every
// value persists until a later line overrides it.
type Position struct {
	X, Y, Z float64

	// E is the absolute extruder length in mm
	E float64

	// Feedrate is the last commanded feedrate in mm/min. Invalid until
	// HasFeedrate is set; moves before the first F are not compensable.
	Feedrate    float64
	HasFeedrate bool
}

// Move is a parsed linear move. Created per line, consumed immediately by
// the flow-rate calculation, then discarded.
type Move struct {
	// Delta is the extrusion delta newE-priorE in mm; <= 0 means a
	// non-printing travel, retraction or prime.
	Delta float64

	// PriorE and NewE are the absolute extruder lengths around the move.
	PriorE, NewE float64

	// HasE reports whether the line carried an E parameter at all.
	HasE bool

	// Distance is the euclidean XYZ travel in mm.
	Distance float64

	// Feedrate is the effective feedrate in mm/min (carried forward when
	// the line has no F parameter).
	Feedrate    float64
	HasFeedrate bool

	// Raw is the original line text; Num the 1-based source line number.
	Raw string
	Num int
}

// Compensable reports whether the move qualifies for flow compensation:
// positive extrusion over positive distance at a known feedrate.
func (m *Move) Compensable() bool {
	return m.HasE && m.Delta > 0 && m.Distance > 0 && m.HasFeedrate
}

// Line is the tagged classification result for one input line.
type Line struct {
	Kind Kind
	Raw  string
	Num  int

	// Tool is the tool index for KindToolChange.
	Tool int

	// Move is set for KindMove.
	Move *Move

	// Warn is a non-fatal parse diagnostic. The line degrades to
	// KindOther passthrough and position state is left untouched.
	Warn error
}

// Parser is the streaming move parser. It owns the Position state and must
// see every line in order: carry-forward semantics make line N's state
// updates a prerequisite for parsing line N+1.
type Parser struct {
	pos      Position
	lineNum  int
	warnings int
}

// NewParser creates a parser with all axes at origin and no feedrate seen.
func NewParser() *Parser {
	return &Parser{}
}

// Position returns the current carry-forward state.
func (p *Parser) Position() Position {
	return p.pos
}

// Warnings returns the number of non-fatal parse diagnostics recorded.
func (p *Parser) Warnings() int {
	return p.warnings
}

// Next classifies one line and updates position state. Lines are counted
// from 1. Numeric parse failures never abort the stream: the line comes
// back as passthrough with Warn set.
func (p *Parser) Next(raw string) Line {
	p.lineNum++
	ln := Line{Kind: KindOther, Raw: raw, Num: p.lineNum}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ln
	}

	if m := reToolChange.FindStringSubmatch(trimmed); m != nil {
		tool, err := strconv.Atoi(m[1])
		if err != nil {
			p.warnings++
			ln.Warn = errors.ParseWarning(p.lineNum, trimmed, "tool index out of range")
			return ln
		}
		ln.Kind = KindToolChange
		ln.Tool = tool
		return ln
	}

	if !reLinearMove.MatchString(trimmed) {
		return ln
	}

	mv, err := p.parseMove(trimmed, raw)
	if err != nil {
		p.warnings++
		ln.Warn = err
		return ln
	}
	ln.Kind = KindMove
	ln.Move = mv
	return ln
}

// parseMove extracts the axis updates of a G0/G1 line, computes deltas
// against the prior position, then commits the new position. On a numeric
// parse failure the position is left unchanged and the error is returned.
func (p *Parser) parseMove(trimmed, raw string) (*Move, error) {
	next := p.pos

	if fm := reFeedrate.FindStringSubmatch(trimmed); fm != nil {
		f, err := strconv.ParseFloat(fm[1], 64)
		if err != nil {
			return nil, errors.ParseWarning(p.lineNum, trimmed, "bad F value "+fm[1])
		}
		next.Feedrate = f
		next.HasFeedrate = true
	}

	for _, am := range reAxis.FindAllStringSubmatch(trimmed, -1) {
		v, err := strconv.ParseFloat(am[2], 64)
		if err != nil {
			return nil, errors.ParseWarning(p.lineNum, trimmed, "bad "+am[1]+" value "+am[2])
		}
		switch am[1] {
		case "X":
			next.X = v
		case "Y":
			next.Y = v
		case "Z":
			next.Z = v
		}
	}

	mv := &Move{
		PriorE:      p.pos.E,
		NewE:        p.pos.E,
		Feedrate:    next.Feedrate,
		HasFeedrate: next.HasFeedrate,
		Raw:         raw,
		Num:         p.lineNum,
	}

	if em := reExtrusion.FindStringSubmatch(trimmed); em != nil {
		e, err := strconv.ParseFloat(em[1], 64)
		if err != nil {
			return nil, errors.ParseWarning(p.lineNum, trimmed, "bad E value "+em[1])
		}
		mv.HasE = true
		mv.NewE = e
		next.E = e
	}

	dx := next.X - p.pos.X
	dy := next.Y - p.pos.Y
	dz := next.Z - p.pos.Z
	mv.Distance = math.Sqrt(dx*dx + dy*dy + dz*dz)
	mv.Delta = mv.NewE - mv.PriorE

	p.pos = next
	return mv, nil
}
