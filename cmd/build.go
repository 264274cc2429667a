package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [design file]",
	Short: "Build a design and export the results",
	Long: `Build loads a design, fills it from the class templates, constructs
the bodies, merges coincident walls, names and blocks the components,
and exports the configured formats.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringP("destination", "d", "", "output directory")
	buildCmd.Flags().StringP("name", "n", "", "output file stem")
	buildCmd.Flags().StringSliceP("format", "f", nil, "geometry formats (stl, obj)")
	buildCmd.Flags().StringSlice("mesh-format", nil, "mesh formats (vtk, msh)")
	buildCmd.Flags().Float64("mesh-size", 0, "target element size")
	buildCmd.Flags().Bool("binary", false, "binary encoding where the format has one")
	buildCmd.Flags().Bool("no-track", false, "skip naming, blocks and sidesets")
}

func runBuild(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		cfg.Input = args[0]
	}
	if cfg.Input == "" {
		return fmt.Errorf("no design file: pass one as an argument or set input in the config")
	}

	// Flags override whatever the config file said.
	if v, _ := cmd.Flags().GetString("destination"); v != "" {
		cfg.Destination = v
	}
	if v, _ := cmd.Flags().GetString("name"); v != "" {
		cfg.RootName = v
	}
	if cmd.Flags().Changed("format") {
		cfg.Export.Geometry, _ = cmd.Flags().GetStringSlice("format")
	}
	if cmd.Flags().Changed("mesh-format") {
		cfg.Export.Mesh, _ = cmd.Flags().GetStringSlice("mesh-format")
	}
	if cmd.Flags().Changed("mesh-size") {
		cfg.Mesh.Size, _ = cmd.Flags().GetFloat64("mesh-size")
	}
	if cmd.Flags().Changed("binary") {
		binary, _ := cmd.Flags().GetBool("binary")
		cfg.Export.STL.Binary = binary
		cfg.Export.VTK.Binary = binary
	}
	if noTrack, _ := cmd.Flags().GetBool("no-track"); noTrack {
		cfg.Track = false
	}

	m := newMaker()
	paths, err := m.Run()
	if err != nil {
		return err
	}

	if rec := m.Record(); rec != nil {
		fmt.Printf("%d components in %d blocks, %d sidesets\n",
			len(rec.Entries), len(rec.Blocks), len(rec.Sidesets))
		if rec.Incomplete() {
			fmt.Printf("warning: %d boundary queries failed, sidesets are incomplete\n",
				len(rec.Failures))
			for _, f := range rec.Failures {
				fmt.Printf("  %v\n", f)
			}
		}
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}
