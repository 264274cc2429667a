// Package cmd wires the command-line interface: configuration,
// logging and the subcommands that drive the pipeline.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mcattow/crucible/pkg/kernel/sdfx"
	"github.com/mcattow/crucible/pkg/maker"
)

var (
	version  = "dev"
	cfgFile  string
	logLevel string
	logJSON  bool
	cfg      maker.Config
)

var rootCmd = &cobra.Command{
	Use:   "crucible",
	Short: "Parametric builder for fusion blanket geometry",
	Long: `Crucible turns a JSON or YAML design tree into solid geometry:
templates fill in the omitted parameters, components are built and
arranged, bodies are named and grouped into material blocks, touching
blocks get boundary sidesets, and the result is meshed and exported.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./crucible.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false,
		"write logs as JSON")
}

func initConfig() {
	defaults := maker.DefaultConfig()
	viper.SetDefault("root_name", defaults.RootName)
	viper.SetDefault("destination", defaults.Destination)
	viper.SetDefault("scale", defaults.Scale)
	viper.SetDefault("track", defaults.Track)
	viper.SetDefault("delimiter", defaults.Delimiter)
	viper.SetDefault("mesh.size", defaults.Mesh.Size)
	viper.SetDefault("export.geometry", defaults.Export.Geometry)
	viper.SetDefault("export.mesh", defaults.Export.Mesh)
	viper.SetDefault("export.stl.binary", defaults.Export.STL.Binary)
	viper.SetDefault("export.vtk.binary", defaults.Export.VTK.Binary)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("crucible")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Running without a config file is fine; anything else is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// newLogger builds the slog logger selected by the global flags.
func newLogger() *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if logJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newMaker builds a maker over a fresh geometry session.
func newMaker() *maker.Maker {
	return maker.New(sdfx.New(), cfg, newLogger())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags).
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
