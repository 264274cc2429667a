package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcattow/crucible/pkg/script"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Drive the pipeline interactively or from a script",
	Long: `Shell starts a small Lisp bound to the pipeline. Builtins mirror the
pipeline stages: (load-design "file"), (fill), (build),
(merge-overlaps), (track), (mesh), (export), plus (param ...),
(set-param ...), (names), (blocks), (sidesets) and friends.

With --script the file is evaluated and the shell exits.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
	shellCmd.Flags().String("script", "", "evaluate a script file and exit")
}

func runShell(cmd *cobra.Command, args []string) error {
	eng := script.New(newMaker())

	if path, _ := cmd.Flags().GetString("script"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("script: %w", err)
		}
		out, evalErrs, err := eng.Eval(string(data))
		if err != nil {
			return err
		}
		for _, e := range evalErrs {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		if len(evalErrs) > 0 {
			return fmt.Errorf("script failed")
		}
		if out != "" {
			fmt.Println(out)
		}
		return nil
	}

	fmt.Printf("crucible %s, (quit) or ctrl-d to leave\n", version)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("crucible> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "(quit)" || line == "(exit)" || line == "quit" || line == "exit" {
			return nil
		}

		out, evalErrs, err := eng.Eval(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			continue
		}
		for _, e := range evalErrs {
			fmt.Fprintln(os.Stderr, "error:", e.Error())
		}
		if out != "" {
			fmt.Println(out)
		}
	}
}
