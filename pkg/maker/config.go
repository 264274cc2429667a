// Package maker drives the full pipeline from a design file to named,
// meshed, exported geometry: load, fill, build, merge, track, mesh,
// export. It owns the kernel session for the duration of a run.
package maker

import (
	"fmt"

	"github.com/mcattow/crucible/pkg/kernel"
)

// MeshConfig holds meshing settings.
type MeshConfig struct {
	// Size is the target element edge length, in model units after
	// scaling.
	Size float64 `mapstructure:"size"`
}

// FormatOptions tunes a single export format.
type FormatOptions struct {
	// Binary selects the binary encoding where the format has one.
	Binary bool `mapstructure:"binary"`
}

// ExportConfig selects output formats and their writer options.
type ExportConfig struct {
	// Geometry formats describe the bodies themselves (stl, obj).
	Geometry []string `mapstructure:"geometry"`
	// Mesh formats require a meshing pass first (vtk, msh).
	Mesh []string `mapstructure:"mesh"`
	// STL and VTK have both text and binary encodings. OBJ and MSH
	// are text only and take no options.
	STL FormatOptions `mapstructure:"stl"`
	VTK FormatOptions `mapstructure:"vtk"`
}

// Config holds all pipeline settings.
type Config struct {
	// Input is the design file to load.
	Input string `mapstructure:"input"`
	// RootName is the stem of every output file.
	RootName string `mapstructure:"root_name"`
	// Destination is the output directory.
	Destination string `mapstructure:"destination"`
	// Scale is a power-of-ten exponent applied to the built bodies,
	// e.g. -1 turns millimetres into centimetres.
	Scale int `mapstructure:"scale"`
	// Track enables naming, blocking and sideset generation.
	Track bool `mapstructure:"track"`
	// Delimiter joins assembly slot names into component names.
	Delimiter string `mapstructure:"delimiter"`

	Mesh   MeshConfig   `mapstructure:"mesh"`
	Export ExportConfig `mapstructure:"export"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		RootName:    "geometry",
		Destination: ".",
		Scale:       0,
		Track:       true,
		Delimiter:   ".",
		Mesh:        MeshConfig{Size: 2.0},
		Export: ExportConfig{
			Geometry: []string{"stl"},
			STL:      FormatOptions{Binary: true},
		},
	}
}

// Validate checks the parts of the config that can fail long after
// startup, so mistakes surface before any geometry is built.
func (c Config) Validate() error {
	if c.RootName == "" {
		return fmt.Errorf("maker: root name must not be empty")
	}
	if c.Mesh.Size <= 0 {
		return fmt.Errorf("maker: mesh size %g not positive", c.Mesh.Size)
	}
	if c.Scale < -12 || c.Scale > 12 {
		return fmt.Errorf("maker: scale exponent %d out of range", c.Scale)
	}
	for _, name := range c.Export.Geometry {
		f, err := kernel.ParseFormat(name)
		if err != nil {
			return fmt.Errorf("maker: geometry export: %w", err)
		}
		if !f.Geometry() {
			return fmt.Errorf("maker: %s is not a geometry format", f)
		}
	}
	for _, name := range c.Export.Mesh {
		f, err := kernel.ParseFormat(name)
		if err != nil {
			return fmt.Errorf("maker: mesh export: %w", err)
		}
		if !f.MeshFormat() {
			return fmt.Errorf("maker: %s is not a mesh format", f)
		}
	}
	return nil
}

// geometryFormats returns the parsed geometry formats. Validate must
// have accepted the config.
func (c Config) geometryFormats() []kernel.Format {
	out := make([]kernel.Format, 0, len(c.Export.Geometry))
	for _, name := range c.Export.Geometry {
		out = append(out, kernel.Format(name))
	}
	return out
}

func (c Config) meshFormats() []kernel.Format {
	out := make([]kernel.Format, 0, len(c.Export.Mesh))
	for _, name := range c.Export.Mesh {
		out = append(out, kernel.Format(name))
	}
	return out
}

// exportOptions returns the writer options configured for a format.
func (c Config) exportOptions(f kernel.Format) kernel.ExportOptions {
	switch f {
	case kernel.STL:
		return kernel.ExportOptions{Binary: c.Export.STL.Binary}
	case kernel.VTK:
		return kernel.ExportOptions{Binary: c.Export.VTK.Binary}
	default:
		return kernel.ExportOptions{}
	}
}
