package comp

import "math"

// Stats accumulates per-tool aggregates while a stream is processed.
// TotalMoves counts every parsed linear move routed to the tool, printing
// or not; the flow/multiplier aggregates fold in only compensable moves;
// CompensatedMoves counts moves whose applied multiplier differed from 1.0
// exactly. Derived values (averages, percentages) are computed at report
// time only.
type Stats struct {
	TotalMoves       int
	ExtrusionMoves   int
	CompensatedMoves int

	TotalFlow float64
	MinFlow   float64
	MaxFlow   float64

	MinMultiplier float64
	MaxMultiplier float64
}

func newStats() Stats {
	return Stats{
		MinFlow:       math.Inf(1),
		MaxFlow:       math.Inf(-1),
		MinMultiplier: math.Inf(1),
		MaxMultiplier: math.Inf(-1),
	}
}

// observe folds one compensable move into the running aggregates.
func (s *Stats) observe(flowRate, multiplier float64) {
	s.ExtrusionMoves++
	s.TotalFlow += flowRate
	s.MinFlow = math.Min(s.MinFlow, flowRate)
	s.MaxFlow = math.Max(s.MaxFlow, flowRate)
	s.MinMultiplier = math.Min(s.MinMultiplier, multiplier)
	s.MaxMultiplier = math.Max(s.MaxMultiplier, multiplier)
}
