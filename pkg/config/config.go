// Package config loads and validates flowcomp material-profile
// configuration from YAML files.
//
// A configuration carries per-material compensation curves, global safety
// clamps, detection defaults and an optional static tool-to-material
// mapping:
//
//	materials:
//	  PETG:
//	    curve_points:
//	      - [0, 1.00]
//	      - [10, 1.00]
//	      - [20, 1.02]
//	output:
//	  min_compensation: 0.8
//	  max_compensation: 1.5
//	extruder_mapping:
//	  T0: PETG
//	  T1: PLA
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"flowcomp-go/pkg/errors"
)

// MaterialProfile is a named compensation curve: ordered (flow_rate,
// multiplier) control points, strictly increasing in flow rate.
type MaterialProfile struct {
	Name        string      `yaml:"name"`
	CurvePoints [][]float64 `yaml:"curve_points"`
}

// DetectionConfig carries metadata-detection defaults.
type DetectionConfig struct {
	// FilamentDiameter is the fallback diameter in mm when the file
	// carries no metadata and no CLI override is given.
	FilamentDiameter float64 `yaml:"filament_diameter"`

	// FallbackMaterial names the profile used when no material can be
	// detected or resolved.
	FallbackMaterial string `yaml:"fallback_material"`

	// HeaderLines bounds the metadata scan. Ignored when ScanFull is set.
	HeaderLines int `yaml:"header_lines"`

	// ScanFull scans the whole file for metadata (footer metadata support).
	ScanFull bool `yaml:"scan_full"`
}

// OutputConfig carries output policy: safety clamps and annotation flags.
type OutputConfig struct {
	MinCompensation float64 `yaml:"min_compensation"`
	MaxCompensation float64 `yaml:"max_compensation"`

	// LogChanges appends a flow_comp annotation to compensated lines.
	LogChanges bool `yaml:"log_changes"`

	// Statistics prints the per-tool report after processing.
	Statistics bool `yaml:"statistics"`
}

// Config is the root configuration structure.
type Config struct {
	Materials       map[string]MaterialProfile `yaml:"materials"`
	ExtruderMapping map[string]string          `yaml:"extruder_mapping"`
	Detection       DetectionConfig            `yaml:"detection"`
	Output          OutputConfig               `yaml:"output"`
}

// Default returns the built-in configuration used when no file is given:
// an identity "default" profile and standard clamp bounds.
func Default() *Config {
	return &Config{
		Materials: map[string]MaterialProfile{
			"default": {
				Name:        "default",
				CurvePoints: [][]float64{{0, 1.0}, {100, 1.0}},
			},
		},
		Detection: DetectionConfig{
			FilamentDiameter: 1.75,
			FallbackMaterial: "default",
			HeaderLines:      500,
		},
		Output: OutputConfig{
			MinCompensation: 0.8,
			MaxCompensation: 1.5,
			LogChanges:      true,
			Statistics:      true,
		},
	}
}

// Load reads a YAML configuration file, applying defaults for absent
// options, and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigFileError(path, err)
	}
	return Parse(data, path)
}

// Parse parses YAML configuration data. path is used for error context only.
func Parse(data []byte, path string) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.ConfigFileError(path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks curve points and clamp bounds. Fatal on failure: the run
// must abort before any output is produced.
func (c *Config) Validate() error {
	if c.Output.MinCompensation <= 0 {
		return errors.ConfigValidationError("output.min_compensation",
			fmt.Sprintf("must be positive, got %g", c.Output.MinCompensation))
	}
	if c.Output.MaxCompensation < c.Output.MinCompensation {
		return errors.ConfigValidationError("output.max_compensation",
			fmt.Sprintf("must be >= min_compensation, got %g < %g",
				c.Output.MaxCompensation, c.Output.MinCompensation))
	}
	if c.Detection.FilamentDiameter <= 0 {
		return errors.ConfigValidationError("detection.filament_diameter",
			fmt.Sprintf("must be positive, got %g", c.Detection.FilamentDiameter))
	}

	for name, profile := range c.Materials {
		if err := validateProfile(name, profile); err != nil {
			return err
		}
	}
	return nil
}

func validateProfile(name string, p MaterialProfile) error {
	if len(p.CurvePoints) < 2 {
		return errors.CurveError(name, fmt.Sprintf("at least 2 control points required, got %d", len(p.CurvePoints)))
	}
	prev := -1.0
	for i, pt := range p.CurvePoints {
		if len(pt) != 2 {
			return errors.CurveError(name, fmt.Sprintf("point %d must be a [flow_rate, multiplier] pair", i))
		}
		x, y := pt[0], pt[1]
		if x < 0 {
			return errors.CurveError(name, fmt.Sprintf("point %d: flow rate must be >= 0, got %g", i, x))
		}
		if x <= prev {
			return errors.CurveError(name, fmt.Sprintf("flow rates must be strictly increasing (point %d: %g after %g)", i, x, prev))
		}
		if y <= 0 {
			return errors.CurveError(name, fmt.Sprintf("point %d: multiplier must be positive, got %g", i, y))
		}
		prev = x
	}
	return nil
}

// Material looks up a material profile by name, case-insensitively.
// The returned profile's Name field is filled with the config key when the
// profile itself does not name itself.
func (c *Config) Material(name string) (MaterialProfile, bool) {
	if p, ok := c.Materials[name]; ok {
		return named(name, p), true
	}
	for key, p := range c.Materials {
		if strings.EqualFold(key, name) {
			return named(key, p), true
		}
	}
	return MaterialProfile{}, false
}

func named(key string, p MaterialProfile) MaterialProfile {
	if p.Name == "" {
		p.Name = key
	}
	return p
}

// ToolMapping parses the extruder_mapping section ("T0: PETG", ...) into a
// tool-index map. Keys that do not look like T<n> are reported in skipped
// and ignored, matching the tolerant loading behavior for mappings.
func (c *Config) ToolMapping() (mapping map[int]string, skipped []string) {
	if len(c.ExtruderMapping) == 0 {
		return nil, nil
	}
	mapping = make(map[int]string, len(c.ExtruderMapping))
	for key, material := range c.ExtruderMapping {
		k := strings.TrimSpace(key)
		if len(k) < 2 || (k[0] != 'T' && k[0] != 't') {
			skipped = append(skipped, key)
			continue
		}
		tool, err := strconv.Atoi(k[1:])
		if err != nil || tool < 0 {
			skipped = append(skipped, key)
			continue
		}
		mapping[tool] = material
	}
	return mapping, skipped
}
