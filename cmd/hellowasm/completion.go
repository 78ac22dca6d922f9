package main

import (
	"errors"
	"io"
	"maps"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
)

// shellGenerators writes the completion script for each supported shell.
var shellGenerators = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":        func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
}

var completionCmd = &cobra.Command{
	Use:   "completion SHELL",
	Short: "Print a shell completion script",
	Long: `Print a completion script for bash, zsh, fish or powershell.

Flag values complete too: --wasm offers "auto" and *.wasm files,
--config offers YAML files and --log-format offers text and json.

Example (bash):
  source <(hellowasm completion bash)`,
	DisableFlagsInUseLine: true,
	ValidArgs:             slices.Sorted(maps.Keys(shellGenerators)),
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return shellGenerators[args[0]](cmd.Root(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// registerFlagCompletions attaches value completion to the global flags.
// It must run after the flags are defined.
func registerFlagCompletions(root *cobra.Command) error {
	return errors.Join(
		root.RegisterFlagCompletionFunc("wasm", completeWasm),
		root.RegisterFlagCompletionFunc("config",
			func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
				return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
			}),
		root.RegisterFlagCompletionFunc("log-format",
			cobra.FixedCompletions([]string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp)),
	)
}

// completeWasm offers autoModule and the guest modules next to toComplete.
func completeWasm(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	candidates := []string{autoModule}
	matches, _ := filepath.Glob(toComplete + "*.wasm")
	candidates = append(candidates, matches...)
	return candidates, cobra.ShellCompDirectiveNoFileComp
}
