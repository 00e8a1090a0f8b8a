package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/kerf/pkg/pipeline"
)

var dialectsCmd = &cobra.Command{
	Use:   "dialects",
	Short: "List the output dialects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := pipeline.DefaultRegistry()
		for _, name := range reg.Names() {
			d, err := reg.Lookup(name)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", name, d.Extension())
		}
		return nil
	},
}
