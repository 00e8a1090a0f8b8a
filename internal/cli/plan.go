package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chazu/kerf/pkg/job"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/sdfx"
	"github.com/chazu/kerf/pkg/pipeline"
	"github.com/chazu/kerf/pkg/post"
	"github.com/chazu/kerf/pkg/telemetry"
)

var (
	planJobFile  string
	planOutput   string
	planDialect  string
	planPreview  string
	planJobs     int
	planComments bool
	planNoCheck  bool
)

var planCmd = &cobra.Command{
	Use:   "plan MODEL",
	Short: "Plan toolpaths and write a router program",
	Long: `Plan every operation of a job against a model and write the program.

Settings are read from the job file (-j), then from KERF_* environment
variables, then from flags. Without a job file kerf cuts the perimeter
and clears every pocket with a 12.7mm end mill.

Exit status is 0 on success, 1 when nothing could be written and 2 when the
program was written with warnings or skipped because no toolpath moves.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadJob(cmd)
		if err != nil {
			return err
		}

		ctx := context.Background()
		shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
		if err != nil {
			return err
		}
		defer func() { _ = shutdown(ctx) }()

		var k kernel.Kernel
		if !planNoCheck {
			k = sdfx.New()
		}
		rep, err := pipeline.Plan(ctx, pipeline.PlanOptions{
			ModelPath: args[0],
			Config:    cfg,
			Kernel:    k,
			Preview:   planPreview,
		})
		if err != nil {
			return err
		}
		printReport(rep)

		if code := rep.ExitCode(); code != 0 {
			return &WarningsError{Warnings: len(rep.Warnings), Skipped: rep.Skipped}
		}
		return nil
	},
}

// loadJob reads the job file, applies environment overrides and then any
// flags given on the command line.
func loadJob(cmd *cobra.Command) (*job.Config, error) {
	cfg := job.Default()
	if planJobFile != "" {
		var err error
		if cfg, err = job.Load(planJobFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output = planOutput
	}
	if flags.Changed("dialect") {
		cfg.Dialect = planDialect
	}
	if flags.Changed("jobs") {
		cfg.Jobs = planJobs
	}
	if flags.Changed("comments") {
		cfg.Comments = planComments
	}
	return cfg, nil
}

func printReport(rep *pipeline.Report) {
	PrintSection(fmt.Sprintf("Plan: %s", rep.Model))

	rows := make([][]string, 0, len(rep.Operations))
	for _, op := range rep.Operations {
		feature := op.Feature
		if feature == "" {
			feature = "-"
		}
		rows = append(rows, []string{op.Name, feature, strconv.Itoa(op.Tool), strconv.Itoa(op.Passes), strconv.Itoa(op.Motions)})
	}
	PrintTable([]string{"OPERATION", "FEATURE", "TOOL", "PASSES", "MOTIONS"}, rows)

	for _, f := range rep.Findings {
		PrintWarning(f.Error())
	}
	for _, w := range rep.Warnings {
		PrintWarning(w.Error())
	}

	fmt.Println()
	if rep.Skipped {
		PrintWarning("No operation has any motion; nothing was written")
		return
	}
	PrintSuccess(fmt.Sprintf("Wrote %s", rep.Output))
	if rep.Preview != "" {
		PrintLabelValue("Preview", rep.Preview)
	}
}

func init() {
	planCmd.Flags().StringVarP(&planJobFile, "job", "j", "", "Job file (YAML)")
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "", "Program file to write (default: model name with the dialect extension)")
	planCmd.Flags().StringVar(&planDialect, "dialect", post.DefaultDialect, "Output dialect (see 'kerf dialects')")
	planCmd.Flags().StringVar(&planPreview, "preview", "", "Also render a PNG top view to this file")
	planCmd.Flags().IntVar(&planJobs, "jobs", 0, "Features planned in parallel (0: one per CPU)")
	planCmd.Flags().BoolVar(&planComments, "comments", false, "Annotate the program with comments")
	planCmd.Flags().BoolVar(&planNoCheck, "no-check", false, "Skip the solid checks before planning")
}
