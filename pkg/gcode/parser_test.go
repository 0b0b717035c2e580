package gcode

import (
	"math"
	"testing"
)

func TestClassifyToolChange(t *testing.T) {
	cases := []struct {
		line string
		kind Kind
		tool int
	}{
		{"T0", KindToolChange, 0},
		{"T1", KindToolChange, 1},
		{"T12", KindToolChange, 12},
		{"  T1 ; switch", KindToolChange, 1},
		{"T", KindOther, 0},
		{"G1 X10", KindMove, 0},
		{"M104 S220", KindOther, 0},
	}
	for _, tc := range cases {
		p := NewParser()
		ln := p.Next(tc.line)
		if ln.Kind != tc.kind {
			t.Errorf("%q: kind = %v, want %v", tc.line, ln.Kind, tc.kind)
			continue
		}
		if tc.kind == KindToolChange && ln.Tool != tc.tool {
			t.Errorf("%q: tool = %d, want %d", tc.line, ln.Tool, tc.tool)
		}
	}
}

func TestG10IsNotALinearMove(t *testing.T) {
	p := NewParser()
	if ln := p.Next("G10 P0 X10"); ln.Kind != KindOther {
		t.Errorf("G10 classified as %v, want passthrough", ln.Kind)
	}
}

func TestMoveWithExtrusion(t *testing.T) {
	p := NewParser()
	p.Next("G1 X100 Y100 E10 F3000")

	ln := p.Next("G1 X110 Y100 E15.55")
	if ln.Kind != KindMove {
		t.Fatalf("kind = %v, want KindMove", ln.Kind)
	}
	mv := ln.Move
	if math.Abs(mv.Delta-5.55) > 1e-12 {
		t.Errorf("Delta = %v, want 5.55", mv.Delta)
	}
	if math.Abs(mv.Distance-10.0) > 1e-12 {
		t.Errorf("Distance = %v, want 10.0", mv.Distance)
	}
	if !mv.HasFeedrate || mv.Feedrate != 3000 {
		t.Errorf("Feedrate = %v (has=%v), want 3000 carried forward", mv.Feedrate, mv.HasFeedrate)
	}
	if !mv.Compensable() {
		t.Error("move should be compensable")
	}

	pos := p.Position()
	if pos.X != 110 || pos.Y != 100 || pos.E != 15.55 {
		t.Errorf("position = %+v, want X=110 Y=100 E=15.55", pos)
	}
}

func TestTravelMoveNotCompensable(t *testing.T) {
	p := NewParser()
	p.Next("G1 X110 Y110 E21.1 F3000")

	ln := p.Next("G0 X100 Y100")
	if ln.Kind != KindMove {
		t.Fatalf("kind = %v, want KindMove", ln.Kind)
	}
	if ln.Move.HasE {
		t.Error("travel move should not carry E")
	}
	if ln.Move.Compensable() {
		t.Error("travel move must not be compensable")
	}
	pos := p.Position()
	if pos.X != 100 || pos.Y != 100 {
		t.Errorf("position not updated by travel move: %+v", pos)
	}
	if pos.E != 21.1 {
		t.Errorf("E = %v, want carry-forward 21.1", pos.E)
	}
}

func TestRetractionNotCompensable(t *testing.T) {
	p := NewParser()
	p.Next("G1 X10 E5 F1800")

	ln := p.Next("G1 E3")
	if ln.Move.Delta >= 0 {
		t.Fatalf("Delta = %v, want negative for retraction", ln.Move.Delta)
	}
	if ln.Move.Compensable() {
		t.Error("retraction must not be compensable")
	}
	if p.Position().E != 3 {
		t.Errorf("E = %v, want 3", p.Position().E)
	}
}

func TestCarryForwardEOnlyMove(t *testing.T) {
	// A move specifying only E and F has zero travel distance: excluded
	// from compensation but E/F state still updates.
	p := NewParser()
	p.Next("G1 X50 Y50 E1 F1200")

	ln := p.Next("G1 E2.5 F900")
	if ln.Kind != KindMove {
		t.Fatalf("kind = %v, want KindMove", ln.Kind)
	}
	if ln.Move.Distance != 0 {
		t.Errorf("Distance = %v, want 0", ln.Move.Distance)
	}
	if ln.Move.Compensable() {
		t.Error("zero-distance move must not be compensable")
	}
	pos := p.Position()
	if pos.E != 2.5 || pos.Feedrate != 900 {
		t.Errorf("position = %+v, want E=2.5 F=900", pos)
	}
	if pos.X != 50 || pos.Y != 50 {
		t.Errorf("X/Y must be untouched: %+v", pos)
	}
}

func TestMoveWithoutFeedrateNotCompensable(t *testing.T) {
	p := NewParser()
	ln := p.Next("G1 X10 Y10 E1")
	if ln.Kind != KindMove {
		t.Fatalf("kind = %v, want KindMove", ln.Kind)
	}
	if ln.Move.HasFeedrate {
		t.Error("no F ever seen, HasFeedrate must be false")
	}
	if ln.Move.Compensable() {
		t.Error("move without known feedrate must not be compensable")
	}
}

func TestZMoveDistance(t *testing.T) {
	p := NewParser()
	p.Next("G1 X3 Y4 F3000")
	ln := p.Next("G1 Z12 E1")
	// From (3,4,0) to (3,4,12)
	if math.Abs(ln.Move.Distance-12) > 1e-12 {
		t.Errorf("Distance = %v, want 12", ln.Move.Distance)
	}
}

func TestToolIndexOverflowIsWarning(t *testing.T) {
	p := NewParser()
	ln := p.Next("T99999999999999999999")
	if ln.Kind != KindOther {
		t.Errorf("kind = %v, want passthrough on overflow", ln.Kind)
	}
	if ln.Warn == nil {
		t.Error("expected a parse warning")
	}
	if p.Warnings() != 1 {
		t.Errorf("Warnings = %d, want 1", p.Warnings())
	}
}

func TestLineNumbering(t *testing.T) {
	p := NewParser()
	p.Next("; header")
	p.Next("G1 F1000")
	ln := p.Next("G1 X1 E0.1")
	if ln.Num != 3 {
		t.Errorf("Num = %d, want 3", ln.Num)
	}
}
