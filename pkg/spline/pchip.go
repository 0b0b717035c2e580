// Monotone piecewise-cubic interpolation for compensation curves
//
// Copyright (C) 2026  Flowcomp Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package spline implements shape-preserving piecewise-cubic Hermite
// interpolation (PCHIP, Fritsch-Carlson slopes). The interpolant passes
// exactly through every control point, is continuously differentiable, and
// never overshoots the local min/max of neighboring control-point values.
// A plain natural cubic spline is unsuitable here: it can dip below 1.0
// between flat control points and introduce spurious compensation.
package spline

import (
	"fmt"
	"math"
	"sort"
)

// Pchip is an immutable monotonicity-preserving cubic Hermite interpolant.
// Evaluation outside [XMin, XMax] clamps flat to the boundary value.
type Pchip struct {
	xs []float64
	ys []float64
	ds []float64 // knot derivatives
}

// NewPchip builds an interpolant through the given control points.
// xs must be strictly increasing and contain at least 2 points.
func NewPchip(xs, ys []float64) (*Pchip, error) {
	n := len(xs)
	if n != len(ys) {
		return nil, fmt.Errorf("spline: %d x values but %d y values", n, len(ys))
	}
	if n < 2 {
		return nil, fmt.Errorf("spline: at least 2 control points required, got %d", n)
	}
	for i := 1; i < n; i++ {
		if xs[i] <= xs[i-1] {
			return nil, fmt.Errorf("spline: x values must be strictly increasing (x[%d]=%g, x[%d]=%g)",
				i-1, xs[i-1], i, xs[i])
		}
	}

	p := &Pchip{
		xs: append([]float64(nil), xs...),
		ys: append([]float64(nil), ys...),
		ds: make([]float64, n),
	}

	if n == 2 {
		// Straight segment
		d := (ys[1] - ys[0]) / (xs[1] - xs[0])
		p.ds[0], p.ds[1] = d, d
		return p, nil
	}

	h := make([]float64, n-1)     // interval widths
	delta := make([]float64, n-1) // secant slopes
	for i := 0; i < n-1; i++ {
		h[i] = xs[i+1] - xs[i]
		delta[i] = (ys[i+1] - ys[i]) / h[i]
	}

	// Interior slopes: weighted harmonic mean of the adjacent secants,
	// zeroed at local extrema so the curve never overshoots.
	for k := 1; k < n-1; k++ {
		if delta[k-1]*delta[k] <= 0 {
			p.ds[k] = 0
			continue
		}
		w1 := 2*h[k] + h[k-1]
		w2 := h[k] + 2*h[k-1]
		p.ds[k] = (w1 + w2) / (w1/delta[k-1] + w2/delta[k])
	}

	p.ds[0] = edgeSlope(h[0], h[1], delta[0], delta[1])
	p.ds[n-1] = edgeSlope(h[n-2], h[n-3], delta[n-2], delta[n-3])

	return p, nil
}

// edgeSlope computes a shape-preserving one-sided three-point estimate for
// an endpoint derivative. h0/d0 belong to the boundary interval.
func edgeSlope(h0, h1, d0, d1 float64) float64 {
	d := ((2*h0+h1)*d0 - h0*d1) / (h0 + h1)
	if math.Signbit(d) != math.Signbit(d0) && d != 0 {
		return 0
	}
	if d0 == 0 {
		return 0
	}
	if math.Signbit(d0) != math.Signbit(d1) && math.Abs(d) > 3*math.Abs(d0) {
		return 3 * d0
	}
	return d
}

// XMin returns the smallest control-point x.
func (p *Pchip) XMin() float64 { return p.xs[0] }

// XMax returns the largest control-point x.
func (p *Pchip) XMax() float64 { return p.xs[len(p.xs)-1] }

// Eval evaluates the interpolant at x. Outside the control-point domain the
// boundary y-value is returned unchanged (flat extrapolation). At a control
// point the stored y-value is returned exactly.
func (p *Pchip) Eval(x float64) float64 {
	n := len(p.xs)
	if x <= p.xs[0] {
		return p.ys[0]
	}
	if x >= p.xs[n-1] {
		return p.ys[n-1]
	}

	// Index of the first knot >= x; segment is [idx-1, idx].
	idx := sort.SearchFloat64s(p.xs, x)
	if p.xs[idx] == x {
		return p.ys[idx]
	}
	i := idx - 1

	h := p.xs[i+1] - p.xs[i]
	t := x - p.xs[i]
	delta := (p.ys[i+1] - p.ys[i]) / h
	c2 := (3*delta - 2*p.ds[i] - p.ds[i+1]) / h
	c3 := (p.ds[i] + p.ds[i+1] - 2*delta) / (h * h)
	return p.ys[i] + t*(p.ds[i]+t*(c2+t*c3))
}
