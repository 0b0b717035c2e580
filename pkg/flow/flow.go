// Volumetric flow-rate computation
//
// Copyright (C) 2026  Flowcomp Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package flow computes instantaneous volumetric flow rates for extrusion
// moves from the commanded extrusion length, travel distance and feedrate.
package flow

import (
	"fmt"
	"math"

	"flowcomp-go/pkg/errors"
)

// DefaultFilamentDiameter is the fallback diameter in mm when neither an
// override nor file metadata provides one.
const DefaultFilamentDiameter = 1.75

// Filament carries the filament geometry used for flow computation.
type Filament struct {
	// Diameter is the filament diameter in mm
	Diameter float64

	// Area is the filament cross-section area in mm^2
	Area float64
}

// NewFilament creates a Filament for the given diameter in mm.
func NewFilament(diameter float64) (Filament, error) {
	if diameter <= 0 {
		return Filament{}, errors.DomainError(fmt.Sprintf("filament diameter must be positive, got %g", diameter))
	}
	return Filament{
		Diameter: diameter,
		Area:     math.Pi * (diameter / 2) * (diameter / 2),
	}, nil
}

// Rate returns the volumetric flow rate in mm^3/s for a move extruding
// `extrusion` mm of filament over `distance` mm of travel at `feedrate`
// mm/min.
//
// The caller filters out zero-length moves before calling; distance <= 0 is
// an invariant violation and fails with a domain error.
func (f Filament) Rate(extrusion, distance, feedrate float64) (float64, error) {
	if distance <= 0 {
		return 0, errors.DomainError(fmt.Sprintf("flow rate undefined for distance %g", distance))
	}
	// (extrusion * area / distance) * feedrate is mm^3/min; divide to mm^3/s.
	return (extrusion * f.Area / distance) * feedrate / 60.0, nil
}
