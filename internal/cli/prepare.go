package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/sdfx"
	"github.com/chazu/kerf/pkg/model"
	"github.com/chazu/kerf/pkg/pipeline"
	"github.com/chazu/kerf/pkg/prepare"
)

var (
	prepareOutput  string
	prepareNoCheck bool
	prepareMesh    bool
)

var prepareCmd = &cobra.Command{
	Use:   "prepare MODEL",
	Short: "Resolve sketch attachments and validate a model",
	Long: `Evaluate a model script (or load a prepared model), place every sketch on
an absolute XY plane, make each pocket's cut direction explicit and check
the features against a solid of the part.

The prepared model is written as YAML to -o, or to stdout. Preparing a
prepared model gives the same model back.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var k kernel.Kernel
		if !prepareNoCheck {
			k = sdfx.New()
		}
		res, err := pipeline.Prepare(context.Background(), args[0], prepare.Options{Kernel: k, Mesh: prepareMesh})
		if res != nil {
			printFindings(res.Findings)
		}
		if err != nil {
			return err
		}

		if prepareOutput == "" {
			data, err := model.Marshal(res.Model)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := pipeline.WritePrepared(prepareOutput, res.Model); err != nil {
			return err
		}

		PrintSuccess(fmt.Sprintf("Prepared %s", res.Model.Name))
		PrintLabelValue("Output", prepareOutput)
		PrintLabelValue("Features", strconv.Itoa(len(res.Order)))
		if res.Mesh != nil {
			PrintLabelValue("Mesh", fmt.Sprintf("%d vertices, %d triangles", res.Mesh.Vertices, res.Mesh.Triangles))
			PrintLabelValue("Volume", fmt.Sprintf("%.1f cm³", res.Mesh.Volume/1000))
		}
		return nil
	},
}

func printFindings(findings []model.ValidationError) {
	for _, f := range findings {
		if f.Severity == model.SeverityError {
			_, _ = errorColor.Fprintf(color.Error, "✗ %s\n", f.Error())
		} else {
			_, _ = warningColor.Fprintf(color.Error, "⚠ %s\n", f.Error())
		}
	}
}

func init() {
	prepareCmd.Flags().StringVarP(&prepareOutput, "output", "o", "", "Write the prepared model to this file")
	prepareCmd.Flags().BoolVar(&prepareNoCheck, "no-check", false, "Skip the solid checks")
	prepareCmd.Flags().BoolVar(&prepareMesh, "mesh", false, "Tessellate the part and report its size")
}
