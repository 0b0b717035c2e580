package spline

import (
	"math"
	"testing"
)

// PETG-style compensation curve used across the tests.
var (
	petgX = []float64{0, 10, 20, 30, 40, 50, 60}
	petgY = []float64{1.00, 1.00, 1.02, 1.06, 1.10, 1.13, 1.18}
)

func TestNewPchipErrors(t *testing.T) {
	if _, err := NewPchip([]float64{1}, []float64{1}); err == nil {
		t.Error("expected error for a single control point")
	}
	if _, err := NewPchip([]float64{0, 10}, []float64{1}); err == nil {
		t.Error("expected error for mismatched lengths")
	}
	if _, err := NewPchip([]float64{0, 10, 10}, []float64{1, 1, 1}); err == nil {
		t.Error("expected error for duplicate x")
	}
	if _, err := NewPchip([]float64{0, 10, 5}, []float64{1, 1, 1}); err == nil {
		t.Error("expected error for decreasing x")
	}
}

func TestInterpolatesControlPointsExactly(t *testing.T) {
	p, err := NewPchip(petgX, petgY)
	if err != nil {
		t.Fatalf("NewPchip: %v", err)
	}
	for i, x := range petgX {
		if got := p.Eval(x); got != petgY[i] {
			t.Errorf("Eval(%g) = %v, want exactly %v", x, got, petgY[i])
		}
	}
}

func TestTwoPointLinear(t *testing.T) {
	p, err := NewPchip([]float64{0, 10}, []float64{1, 2})
	if err != nil {
		t.Fatalf("NewPchip: %v", err)
	}
	if got := p.Eval(5); math.Abs(got-1.5) > 1e-12 {
		t.Errorf("Eval(5) = %v, want 1.5", got)
	}
}

func TestFlatExtrapolation(t *testing.T) {
	p, err := NewPchip(petgX, petgY)
	if err != nil {
		t.Fatalf("NewPchip: %v", err)
	}
	for _, x := range []float64{-100, -1, 0} {
		if got := p.Eval(x); got != 1.00 {
			t.Errorf("Eval(%g) = %v, want exactly 1.00 (flat clamp below domain)", x, got)
		}
	}
	for _, x := range []float64{60, 61, 1000} {
		if got := p.Eval(x); got != 1.18 {
			t.Errorf("Eval(%g) = %v, want exactly 1.18 (flat clamp above domain)", x, got)
		}
	}
}

func TestFlatSegmentStaysExactlyFlat(t *testing.T) {
	// Between two equal control values the curve must be the constant
	// exactly, or compensation would drift at multiplier 1.0.
	p, err := NewPchip(petgX, petgY)
	if err != nil {
		t.Fatalf("NewPchip: %v", err)
	}
	for x := 0.0; x <= 10.0; x += 0.25 {
		if got := p.Eval(x); got != 1.00 {
			t.Errorf("Eval(%g) = %v, want exactly 1.00 on the flat segment", x, got)
		}
	}
}

func TestNoOvershootWithinSegments(t *testing.T) {
	p, err := NewPchip(petgX, petgY)
	if err != nil {
		t.Fatalf("NewPchip: %v", err)
	}
	const eps = 1e-12
	for i := 0; i < len(petgX)-1; i++ {
		lo := math.Min(petgY[i], petgY[i+1]) - eps
		hi := math.Max(petgY[i], petgY[i+1]) + eps
		for j := 0; j <= 100; j++ {
			x := petgX[i] + (petgX[i+1]-petgX[i])*float64(j)/100
			y := p.Eval(x)
			if y < lo || y > hi {
				t.Fatalf("Eval(%g) = %v overshoots segment bounds [%v, %v]", x, y, lo, hi)
			}
		}
	}
}

func TestMonotoneOnMonotoneData(t *testing.T) {
	p, err := NewPchip(petgX, petgY)
	if err != nil {
		t.Fatalf("NewPchip: %v", err)
	}
	prev := math.Inf(-1)
	for x := 0.0; x <= 60.0; x += 0.1 {
		y := p.Eval(x)
		if y < prev-1e-12 {
			t.Fatalf("curve decreased on non-decreasing data at x=%g: %v < %v", x, y, prev)
		}
		prev = y
	}
}

func TestNoOvershootOnOscillatingData(t *testing.T) {
	// A natural cubic spline would over/undershoot here; PCHIP must not.
	p, err := NewPchip([]float64{0, 1, 2, 3}, []float64{0, 1, 0, 1})
	if err != nil {
		t.Fatalf("NewPchip: %v", err)
	}
	for x := 0.0; x <= 3.0; x += 0.01 {
		y := p.Eval(x)
		if y < -1e-12 || y > 1+1e-12 {
			t.Fatalf("Eval(%g) = %v outside data range [0, 1]", x, y)
		}
	}
}

func TestInteriorValueBetweenBracketingPoints(t *testing.T) {
	p, err := NewPchip(petgX, petgY)
	if err != nil {
		t.Fatalf("NewPchip: %v", err)
	}
	// High-flow region: strictly between the bracketing control values.
	got := p.Eval(45.2)
	if got <= 1.10 || got >= 1.13 {
		t.Errorf("Eval(45.2) = %v, want strictly within (1.10, 1.13)", got)
	}
}

func TestDomainBounds(t *testing.T) {
	p, err := NewPchip(petgX, petgY)
	if err != nil {
		t.Fatalf("NewPchip: %v", err)
	}
	if p.XMin() != 0 || p.XMax() != 60 {
		t.Errorf("domain = [%g, %g], want [0, 60]", p.XMin(), p.XMax())
	}
}
