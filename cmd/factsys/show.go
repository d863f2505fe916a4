package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/groundstation/factsys"
	"github.com/spf13/cobra"
)

func newShowCmd(a *app) *cobra.Command {
	var (
		flags     containerFlags
		component int
		group     string
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List parameters with their values and metadata",
		Example: `  factsys show --meta meta.yaml --params params.yaml
  factsys show --meta meta.yaml --params params.yaml --component 1 --group "Return Mode"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.open(cmd.Context(), &flags)
			if err != nil {
				return err
			}
			defer c.Close()

			var facts []*factsys.Fact
			for _, f := range c.Facts() {
				if component >= 0 && f.ComponentID() != component {
					continue
				}
				if group != "" && f.Group() != group {
					continue
				}
				facts = append(facts, f)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "COMPONENT\tNAME\tVALUE\tDEFAULT\tGROUP\tORIGIN\tDESCRIPTION")
			for _, f := range facts {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					f.ComponentID(), f.Name(), f.ValueString(), f.DefaultValueString(),
					f.Group(), originName(c, f), f.ShortDescription())
			}
			return w.Flush()
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&component, "component", -1, "only show this component id")
	cmd.Flags().StringVar(&group, "group", "", "only show this metadata group")
	return cmd
}
