package comp

import "sort"

// ToolReport is the finalized per-tool statistics record.
type ToolReport struct {
	Tool             int
	Material         string
	TotalMoves       int
	ExtrusionMoves   int
	CompensatedMoves int
	CompensatedPct   float64

	// Flow aggregates in mm^3/s over compensable moves; zero when the
	// tool saw none.
	MinFlow float64
	MaxFlow float64
	AvgFlow float64

	MinMultiplier float64
	MaxMultiplier float64
}

// Report is the structured result of one run, consumed by the reporting
// layer. The core does not format human-readable tables.
type Report struct {
	RunID            string
	FilamentDiameter float64
	MultiTool        bool
	ParseWarnings    int

	Tools []ToolReport

	TotalMoves       int
	ExtrusionMoves   int
	CompensatedMoves int
	CompensatedPct   float64
}

// Report finalizes the accumulated statistics. Tools are sorted by index;
// tools that never saw a move are omitted.
func (c *Compensator) Report() Report {
	r := Report{
		RunID:            c.runID,
		FilamentDiameter: c.filament.Diameter,
		MultiTool:        c.multiTool,
		ParseWarnings:    c.parser.Warnings(),
	}

	indices := make([]int, 0, len(c.tools))
	for tool := range c.tools {
		indices = append(indices, tool)
	}
	sort.Ints(indices)

	for _, tool := range indices {
		ts := c.tools[tool]
		if ts.Stats.TotalMoves == 0 {
			continue
		}
		tr := ToolReport{
			Tool:             tool,
			Material:         ts.Material,
			TotalMoves:       ts.Stats.TotalMoves,
			ExtrusionMoves:   ts.Stats.ExtrusionMoves,
			CompensatedMoves: ts.Stats.CompensatedMoves,
		}
		if ts.Stats.TotalMoves > 0 {
			tr.CompensatedPct = 100 * float64(ts.Stats.CompensatedMoves) / float64(ts.Stats.TotalMoves)
		}
		if ts.Stats.ExtrusionMoves > 0 {
			tr.MinFlow = ts.Stats.MinFlow
			tr.MaxFlow = ts.Stats.MaxFlow
			tr.AvgFlow = ts.Stats.TotalFlow / float64(ts.Stats.ExtrusionMoves)
			tr.MinMultiplier = ts.Stats.MinMultiplier
			tr.MaxMultiplier = ts.Stats.MaxMultiplier
		}
		r.Tools = append(r.Tools, tr)

		r.TotalMoves += tr.TotalMoves
		r.ExtrusionMoves += tr.ExtrusionMoves
		r.CompensatedMoves += tr.CompensatedMoves
	}

	if r.TotalMoves > 0 {
		r.CompensatedPct = 100 * float64(r.CompensatedMoves) / float64(r.TotalMoves)
	}
	return r
}
