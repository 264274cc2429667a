package cmd

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/mcattow/crucible/pkg/component"
	"github.com/mcattow/crucible/pkg/design"
)

var infoCmd = &cobra.Command{
	Use:   "info [class]",
	Short: "List component classes, or print one class's template",
	Long: `Without an argument, info lists every registered component class
with its kind and required parameters. With a class tag, it prints the
parameter template that fill uses for that class.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	templates := design.Defaults()
	if len(args) == 1 {
		t, ok := templates.Template(args[0])
		if !ok {
			return fmt.Errorf("no class %q", args[0])
		}
		b, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	}

	classes := component.Builtins()
	for _, tag := range classes.Tags() {
		def, _ := classes.Definition(tag)
		line := fmt.Sprintf("%-14s %s", tag, def.Kind)
		if len(def.Required) > 0 {
			line += fmt.Sprintf("  requires %v", def.Required)
		}
		if _, ok := templates.Template(tag); !ok {
			line += "  (no template)"
		}
		fmt.Println(line)
	}
	return nil
}
