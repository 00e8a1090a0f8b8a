package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chazu/kerf/pkg/pipeline"
)

var (
	// Global flags
	verbose bool

	// Colors for help output sections
	groupTitleColor   = color.New(color.FgCyan, color.Bold)
	sectionTitleColor = color.New(color.FgBlue, color.Bold)
)

// rootCmd is the root command for kerf.
var rootCmd = &cobra.Command{
	Use:     "kerf",
	Version: "dev",
	Short:   "Toolpath planner for 3-axis CNC routers",
	Long: `kerf turns a parametric part model into a router program.

A model is a padded stock body with pockets cut into it. kerf resolves the
model, plans a perimeter profile and a pocket clear for each feature, and
writes the result as OpenSBP or G-code.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		pipeline.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	},
}

func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// customHelpFunc colors group titles
func customHelpFunc(cmd *cobra.Command, args []string) {
	var help strings.Builder

	if cmd.Long != "" {
		help.WriteString(cmd.Long)
		help.WriteString("\n\n")
	}

	help.WriteString(sectionTitleColor.Sprint("Usage:"))
	help.WriteString("\n")
	fmt.Fprintf(&help, "  %s\n\n", cmd.UseLine())

	for _, group := range cmd.Groups() {
		help.WriteString(groupTitleColor.Sprint(group.Title))
		help.WriteString("\n")
		for _, c := range cmd.Commands() {
			if c.GroupID == group.ID && !c.Hidden {
				fmt.Fprintf(&help, "  %-11s %s\n", c.Name(), c.Short)
			}
		}
		help.WriteString("\n")
	}

	if cmd.HasAvailableLocalFlags() || cmd.HasAvailablePersistentFlags() {
		help.WriteString(sectionTitleColor.Sprint("Flags:"))
		help.WriteString("\n")
		help.WriteString(cmd.LocalFlags().FlagUsages())
		help.WriteString(cmd.InheritedFlags().FlagUsages())
		help.WriteString("\n")
	}

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(&help, "Use \"%s [command] --help\" for more information about a command.\n", cmd.CommandPath())
	}

	fmt.Fprint(cmd.OutOrStdout(), help.String())
}

func init() {
	rootCmd.SetHelpFunc(customHelpFunc)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every pipeline stage")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "machining",
		Title: "Machining:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "cli-tooling",
		Title: "CLI & Tooling:",
	})

	versionCmd := &cobra.Command{
		Use:     "version",
		Short:   "Print the kerf version",
		Args:    cobra.NoArgs,
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rootCmd.Version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	helpCmd := &cobra.Command{
		Use:     "help [command]",
		Short:   "Help about any command",
		GroupID: "cli-tooling",
		Run: func(cmd *cobra.Command, args []string) {
			target, _, err := cmd.Root().Find(args)
			if err != nil || target == nil {
				target = cmd.Root()
			}
			_ = target.Help()
		},
	}
	rootCmd.SetHelpCommand(helpCmd)

	prepareCmd.GroupID = "machining"
	planCmd.GroupID = "machining"
	dialectsCmd.GroupID = "cli-tooling"
	rootCmd.AddCommand(prepareCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(dialectsCmd)
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Main runs the CLI and returns the process exit code: 0 on success, 2
// when output was written with warnings or skipped, 1 on any other error.
func Main() int {
	err := Execute()
	if err != nil && !IsWarnings(err) {
		PrintError(err.Error())
	}
	return ExitCode(err)
}
