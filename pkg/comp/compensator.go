// Flow compensation engine: tool routing, curve evaluation, line rewriting
//
// Copyright (C) 2026  Flowcomp Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package comp implements the flow-compensation pipeline. It consumes a
// G-code line stream, routes each extrusion move to the active tool's
// compensation curve, rescales the commanded extrusion and accumulates
// per-tool statistics.
//
// Processing is single-threaded and strictly ordered: carry-forward
// position state and running statistics make line N's updates a
// prerequisite for line N+1. A Compensator covers one file; build a new one
// per file.
package comp

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"flowcomp-go/pkg/config"
	"flowcomp-go/pkg/errors"
	"flowcomp-go/pkg/flow"
	"flowcomp-go/pkg/gcode"
	"flowcomp-go/pkg/log"
	"flowcomp-go/pkg/spline"
)

// Options configures a Compensator run.
type Options struct {
	// Config is the validated material-profile configuration. Required.
	Config *config.Config

	// Metadata is the header metadata detected from the input file.
	Metadata gcode.Metadata

	// MaterialOverrides are CLI-supplied material names. Two or more map
	// positionally to tools T0..TN-1 and take precedence over the static
	// extruder mapping; a single name is a run-wide scalar override for
	// tools without a static mapping.
	MaterialOverrides []string

	// FilamentDiameter overrides detection when positive.
	FilamentDiameter float64

	// DisableAnnotations suppresses the flow_comp trailing comments even
	// when the config enables them.
	DisableAnnotations bool

	// Logger defaults to the package logger when nil.
	Logger *log.Logger
}

// ToolState is the per-tool record: resolved material, lazily built
// compensation curve and running statistics.
type ToolState struct {
	Tool     int
	Material string
	Stats    Stats

	curve    *spline.Pchip
	resolved bool
}

// Compensator owns the run context for one file: active tool, per-tool
// states, filament geometry and safety clamps.
type Compensator struct {
	cfg      *config.Config
	logger   *log.Logger
	runID    string
	filament flow.Filament

	clampMin float64
	clampMax float64
	annotate bool

	overrides []string
	mapping   map[int]string
	metadata  gcode.Metadata
	multiTool bool

	activeTool int
	tools      map[int]*ToolState
	parser     *gcode.Parser
}

// New creates a Compensator. Curves for explicitly configured tools (static
// mapping and positional overrides) are built eagerly so configuration
// errors abort before any output is produced; tools first referenced
// mid-stream get their curve on first compensable move.
func New(opts Options) (*Compensator, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New(errors.ErrConfigFile, "no configuration supplied")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.GetLogger("comp")
	}

	diameter := opts.FilamentDiameter
	source := "override"
	if diameter <= 0 {
		diameter = opts.Metadata.FilamentDiameter
		source = "metadata"
	}
	if diameter <= 0 {
		diameter = cfg.Detection.FilamentDiameter
		source = "default"
	}
	filament, err := flow.NewFilament(diameter)
	if err != nil {
		return nil, err
	}

	mapping, skipped := cfg.ToolMapping()
	for _, key := range skipped {
		logger.Warn("invalid extruder_mapping key %q, skipping", key)
	}

	c := &Compensator{
		cfg:       cfg,
		logger:    logger,
		runID:     uuid.NewString(),
		filament:  filament,
		clampMin:  cfg.Output.MinCompensation,
		clampMax:  cfg.Output.MaxCompensation,
		annotate:  cfg.Output.LogChanges && !opts.DisableAnnotations,
		overrides: opts.MaterialOverrides,
		mapping:   mapping,
		metadata:  opts.Metadata,
		multiTool: len(mapping) > 1 || len(opts.MaterialOverrides) > 1,
		tools:     make(map[int]*ToolState),
		parser:    gcode.NewParser(),
	}

	logger.WithField("run_id", c.runID).
		WithField("diameter_mm", filament.Diameter).
		Info("filament diameter from %s, cross-section %.4f mm2", source, filament.Area)

	for tool := range mapping {
		if _, err := c.curveFor(tool); err != nil {
			return nil, err
		}
	}
	if len(opts.MaterialOverrides) > 1 {
		for tool := range opts.MaterialOverrides {
			if _, err := c.curveFor(tool); err != nil {
				return nil, err
			}
		}
	}

	return c, nil
}

// RunID returns the unique identifier of this run.
func (c *Compensator) RunID() string {
	return c.runID
}

// ActiveTool returns the current tool index. Tool 0 until the first
// tool-change token.
func (c *Compensator) ActiveTool() int {
	return c.activeTool
}

// toolState returns the state for a tool, creating it lazily.
func (c *Compensator) toolState(tool int) *ToolState {
	ts, ok := c.tools[tool]
	if !ok {
		ts = &ToolState{Tool: tool, Stats: newStats()}
		c.tools[tool] = ts
	}
	return ts
}

// resolveMaterial picks the material profile for a tool. Resolution order:
// positional override list, static extruder mapping, scalar override,
// detected filament type, configured fallback, "default". A named
// candidate missing from the materials table is logged and skipped.
func (c *Compensator) resolveMaterial(tool int) (config.MaterialProfile, error) {
	var candidates []string
	if len(c.overrides) > 1 && tool < len(c.overrides) {
		candidates = append(candidates, c.overrides[tool])
	}
	if m, ok := c.mapping[tool]; ok {
		candidates = append(candidates, m)
	}
	if len(c.overrides) == 1 {
		candidates = append(candidates, c.overrides[0])
	}
	if c.metadata.FilamentType != "" {
		candidates = append(candidates, c.metadata.FilamentType)
	}
	if c.cfg.Detection.FallbackMaterial != "" {
		candidates = append(candidates, c.cfg.Detection.FallbackMaterial)
	}
	candidates = append(candidates, "default")

	for _, name := range candidates {
		if name == "" {
			continue
		}
		if p, ok := c.cfg.Material(name); ok {
			return p, nil
		}
		c.logger.Warn("material %q not found for tool T%d, trying fallback", name, tool)
	}
	return config.MaterialProfile{}, errors.ToolProfileError(tool)
}

// curveFor returns the compensation curve for a tool, resolving the
// material and building the interpolant on first use.
func (c *Compensator) curveFor(tool int) (*spline.Pchip, error) {
	ts := c.toolState(tool)
	if ts.resolved {
		return ts.curve, nil
	}

	profile, err := c.resolveMaterial(tool)
	if err != nil {
		return nil, err
	}

	xs := make([]float64, len(profile.CurvePoints))
	ys := make([]float64, len(profile.CurvePoints))
	for i, pt := range profile.CurvePoints {
		if len(pt) != 2 {
			return nil, errors.CurveError(profile.Name, fmt.Sprintf("point %d is not a pair", i))
		}
		xs[i] = pt[0]
		ys[i] = pt[1]
	}
	curve, err := spline.NewPchip(xs, ys)
	if err != nil {
		return nil, errors.CurveError(profile.Name, err.Error())
	}

	ts.Material = profile.Name
	ts.curve = curve
	ts.resolved = true
	c.logger.Info("tool T%d: using material profile %s (%.1f - %.1f mm3/s)",
		tool, profile.Name, curve.XMin(), curve.XMax())
	return curve, nil
}

// clamp applies the global safety bounds to a raw multiplier.
func (c *Compensator) clamp(m float64) float64 {
	if m < c.clampMin {
		return c.clampMin
	}
	if m > c.clampMax {
		return c.clampMax
	}
	return m
}

// ProcessLine consumes one input line and returns the corresponding output
// line. Every input line maps to exactly one output line; only compensated
// moves come back modified. A returned error is fatal (configuration or
// internal invariant) and the caller must discard any partial output.
func (c *Compensator) ProcessLine(raw string) (string, error) {
	ln := c.parser.Next(raw)

	switch ln.Kind {
	case gcode.KindToolChange:
		c.activeTool = ln.Tool
		c.logger.Debug("line %d: tool change T%d", ln.Num, ln.Tool)
		return raw, nil

	case gcode.KindMove:
		return c.processMove(raw, ln.Move)

	default:
		if ln.Warn != nil {
			c.logger.WithError(ln.Warn).Warn("line %d passed through unmodified", ln.Num)
		}
		return raw, nil
	}
}

func (c *Compensator) processMove(raw string, mv *gcode.Move) (string, error) {
	ts := c.toolState(c.activeTool)
	ts.Stats.TotalMoves++

	if !mv.Compensable() {
		return raw, nil
	}

	rate, err := c.filament.Rate(mv.Delta, mv.Distance, mv.Feedrate)
	if err != nil {
		// Unreachable given the Compensable filter
		return raw, err
	}

	curve, err := c.curveFor(c.activeTool)
	if err != nil {
		return raw, err
	}

	multiplier := c.clamp(curve.Eval(rate))
	ts.Stats.observe(rate, multiplier)

	c.logger.WithField("tool", c.activeTool).
		Debug("line %d: flow=%.1f mm3/s, mult=%.3fx", mv.Num, rate, multiplier)

	// Multiplier exactly 1.0 leaves the line byte-identical: flat curve
	// regions and flat extrapolation must never introduce float drift.
	if multiplier == 1.0 {
		return raw, nil
	}
	ts.Stats.CompensatedMoves++

	out := gcode.RewriteExtrusion(raw, mv.PriorE+mv.Delta*multiplier)
	if c.annotate {
		out = gcode.Annotate(out, c.activeTool, c.multiTool, rate, multiplier)
	}
	return out, nil
}

// ProcessLines processes a whole file held in memory, preserving the line
// count 1:1. On error no output is returned.
func (c *Compensator) ProcessLines(lines []string) ([]string, error) {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		res, err := c.ProcessLine(line)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// Process streams r to w line by line with normalized "\n" endings.
// Suitable for arbitrarily large files; note that on mid-stream error the
// already-written prefix remains in w, so callers needing all-or-nothing
// output should use ProcessLines with a buffered destination.
func (c *Compensator) Process(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	bw := bufio.NewWriter(w)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		res, err := c.ProcessLine(line)
		if err != nil {
			return err
		}
		if _, err := bw.WriteString(res); err != nil {
			return errors.WriteError("output", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return errors.WriteError("output", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.ReadError("input", err)
	}
	return bw.Flush()
}
