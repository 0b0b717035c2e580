package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowcomp-go/pkg/errors"
)

const sampleYAML = `
materials:
  PETG:
    curve_points:
      - [0, 1.00]
      - [10, 1.00]
      - [20, 1.02]
      - [30, 1.06]
      - [40, 1.10]
      - [50, 1.13]
      - [60, 1.18]
  PLA:
    curve_points:
      - [0, 1.00]
      - [15, 1.00]
      - [25, 1.02]
      - [35, 1.05]

extruder_mapping:
  T0: PETG
  T1: PLA

detection:
  filament_diameter: 1.75
  fallback_material: PETG
  header_lines: 300

output:
  min_compensation: 0.85
  max_compensation: 1.4
  log_changes: false
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML), "test.yaml")
	require.NoError(t, err)

	assert.Len(t, cfg.Materials, 3) // PETG, PLA and the built-in default
	assert.Equal(t, 0.85, cfg.Output.MinCompensation)
	assert.Equal(t, 1.4, cfg.Output.MaxCompensation)
	assert.False(t, cfg.Output.LogChanges)
	assert.True(t, cfg.Output.Statistics, "unset options keep their defaults")
	assert.Equal(t, "PETG", cfg.Detection.FallbackMaterial)
	assert.Equal(t, 300, cfg.Detection.HeaderLines)

	petg, ok := cfg.Material("PETG")
	require.True(t, ok)
	assert.Equal(t, "PETG", petg.Name)
	assert.Len(t, petg.CurvePoints, 7)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flowcomp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	_, ok := cfg.Material("PLA")
	assert.True(t, ok)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfigFile))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1.75, cfg.Detection.FilamentDiameter)
	assert.Equal(t, 0.8, cfg.Output.MinCompensation)
	assert.Equal(t, 1.5, cfg.Output.MaxCompensation)
	_, ok := cfg.Material("default")
	assert.True(t, ok)
}

func TestMaterialCaseInsensitive(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML), "test.yaml")
	require.NoError(t, err)

	p, ok := cfg.Material("petg")
	require.True(t, ok)
	assert.Equal(t, "PETG", p.Name)

	_, ok = cfg.Material("ASA")
	assert.False(t, ok)
}

func TestValidateCurveErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"single point", `
materials:
  BAD:
    curve_points:
      - [0, 1.0]
`},
		{"non-increasing x", `
materials:
  BAD:
    curve_points:
      - [10, 1.0]
      - [10, 1.1]
`},
		{"decreasing x", `
materials:
  BAD:
    curve_points:
      - [10, 1.0]
      - [5, 1.1]
`},
		{"negative flow rate", `
materials:
  BAD:
    curve_points:
      - [-5, 1.0]
      - [10, 1.1]
`},
		{"non-positive multiplier", `
materials:
  BAD:
    curve_points:
      - [0, 0]
      - [10, 1.1]
`},
		{"not a pair", `
materials:
  BAD:
    curve_points:
      - [0, 1.0, 2.0]
      - [10, 1.1]
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml), "test.yaml")
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrConfigCurve), "got %v", err)
		})
	}
}

func TestValidateClampErrors(t *testing.T) {
	_, err := Parse([]byte(`
output:
  min_compensation: 0
`), "test.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfigValidation))

	_, err = Parse([]byte(`
output:
  min_compensation: 1.2
  max_compensation: 1.0
`), "test.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfigValidation))
}

func TestToolMapping(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML), "test.yaml")
	require.NoError(t, err)

	mapping, skipped := cfg.ToolMapping()
	assert.Empty(t, skipped)
	assert.Equal(t, map[int]string{0: "PETG", 1: "PLA"}, mapping)
}

func TestToolMappingSkipsInvalidKeys(t *testing.T) {
	cfg := Default()
	cfg.ExtruderMapping = map[string]string{
		"T0":    "default",
		"tool1": "default",
		"T-2":   "default",
		"t3":    "default",
	}
	mapping, skipped := cfg.ToolMapping()
	assert.Equal(t, map[int]string{0: "default", 3: "default"}, mapping)
	assert.Len(t, skipped, 2)
}
