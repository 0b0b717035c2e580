// flowcomp rewrites G-code to compensate for underextrusion at high
// volumetric flow rates. For every extrusion move it computes the
// instantaneous flow rate, looks up a per-material multiplier from a
// monotone compensation curve and rescales the commanded extrusion.
//
// Usage:
//
//	flowcomp [options] input.gcode [output.gcode]
//
// Options:
//
//	-config string    Material profile configuration YAML (default: built-in)
//	-material string  Comma-separated material override(s); two or more map
//	                  positionally to tools T0..TN-1
//	-diameter float   Filament diameter override in mm
//	-dry-run          Analyze without writing output
//	-no-comments      Suppress flow_comp annotation comments
//	-verbose          Per-move diagnostics
//
// When no output path is given the input file is overwritten in place.
//
// # Copyright (C) 2026  Flowcomp Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"flowcomp-go/pkg/comp"
	"flowcomp-go/pkg/config"
	"flowcomp-go/pkg/errors"
	"flowcomp-go/pkg/flow"
	"flowcomp-go/pkg/gcode"
	"flowcomp-go/pkg/log"
)

func main() {
	configFile := flag.String("config", "", "Material profile configuration YAML")
	material := flag.String("material", "", "Comma-separated material override(s)")
	diameter := flag.Float64("diameter", 0, "Filament diameter override in mm")
	dryRun := flag.Bool("dry-run", false, "Analyze without writing output")
	noComments := flag.Bool("no-comments", false, "Suppress flow_comp annotation comments")
	verbose := flag.Bool("verbose", false, "Per-move diagnostics")
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		fmt.Fprintf(os.Stderr, "Usage: flowcomp [options] input.gcode [output.gcode]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := log.GetLogger("flowcomp")
	if *verbose {
		logger.SetLevel(log.DEBUG)
	}

	if err := run(logger, *configFile, *material, *diameter, *dryRun, *noComments,
		flag.Arg(0), flag.Arg(1)); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func run(logger *log.Logger, configFile, material string, diameter float64,
	dryRun, noComments bool, inputPath, outputPath string) error {

	cfg := config.Default()
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
		logger.Info("configuration: %s (%d materials)", configFile, len(cfg.Materials))
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return errors.ReadError(inputPath, err)
	}
	lines := splitLines(string(data))
	logger.Info("parsing %s (%d lines)", inputPath, len(lines))

	scanLimit := cfg.Detection.HeaderLines
	if cfg.Detection.ScanFull {
		scanLimit = 0
	}
	md := gcode.ScanLines(lines, scanLimit)
	logMetadata(logger, md)

	var overrides []string
	for _, m := range strings.Split(material, ",") {
		if m = strings.TrimSpace(m); m != "" {
			overrides = append(overrides, m)
		}
	}

	c, err := comp.New(comp.Options{
		Config:             cfg,
		Metadata:           md,
		MaterialOverrides:  overrides,
		FilamentDiameter:   diameter,
		DisableAnnotations: noComments,
		Logger:             logger.WithPrefix("comp"),
	})
	if err != nil {
		return err
	}

	out, err := c.ProcessLines(lines)
	if err != nil {
		return err
	}

	report := c.Report()
	if cfg.Output.Statistics {
		printReport(report)
	}
	if report.ParseWarnings > 0 {
		logger.Warn("%d lines had unparseable tokens and were passed through", report.ParseWarnings)
	}

	if dryRun {
		logger.Info("dry run, no output written")
		return nil
	}

	if outputPath == "" {
		outputPath = inputPath
	}
	if err := os.WriteFile(outputPath, []byte(strings.Join(out, "\n")+"\n"), 0644); err != nil {
		return errors.WriteError(outputPath, err)
	}
	logger.Info("output written to %s", outputPath)
	return nil
}

// splitLines splits file content into lines, normalizing CRLF endings and
// dropping the trailing empty element a final newline produces. Every
// retained input line maps to exactly one output line.
func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}

func logMetadata(logger *log.Logger, md gcode.Metadata) {
	orNotFound := func(v float64, unit string) string {
		if v == 0 {
			return "not found"
		}
		return fmt.Sprintf("%g %s", v, unit)
	}
	ft := md.FilamentType
	if ft == "" {
		ft = "not found"
	}
	logger.WithFields(log.Fields{
		"filament_type":     ft,
		"filament_diameter": orNotFound(md.FilamentDiameter, "mm"),
		"layer_height":      orNotFound(md.LayerHeight, "mm"),
		"line_width":        orNotFound(md.LineWidth, "mm"),
	}).Info("detected metadata")
	if md.FilamentDiameter == 0 {
		logger.Info("no filament diameter in file, default is %g mm", flow.DefaultFilamentDiameter)
	}
}

func printReport(r comp.Report) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("FLOW COMPENSATION STATISTICS")
	fmt.Println(strings.Repeat("=", 60))

	if len(r.Tools) == 0 {
		fmt.Println("\nNo extrusion moves found to process.")
		fmt.Println(strings.Repeat("=", 60))
		return
	}

	for _, t := range r.Tools {
		fmt.Printf("\nTool T%d (%s):\n", t.Tool, t.Material)
		fmt.Printf("  Total moves:     %d\n", t.TotalMoves)
		fmt.Printf("  Compensated:     %d (%.1f%%)\n", t.CompensatedMoves, t.CompensatedPct)
		if t.ExtrusionMoves > 0 {
			fmt.Printf("  Flow range:      %.1f - %.1f mm3/s\n", t.MinFlow, t.MaxFlow)
			fmt.Printf("  Avg flow:        %.1f mm3/s\n", t.AvgFlow)
			fmt.Printf("  Multiplier:      %.3f - %.3fx\n", t.MinMultiplier, t.MaxMultiplier)
		}
	}

	fmt.Printf("\nTotal: %d moves, %d compensated (%.1f%%)\n",
		r.TotalMoves, r.CompensatedMoves, r.CompensatedPct)
	fmt.Println(strings.Repeat("=", 60))
}
