package main

import (
	"fmt"

	"github.com/groundstation/factsys"
	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	var flags containerFlags
	cmd := &cobra.Command{
		Use:     "get COMPONENT NAME",
		Short:   "Print one parameter",
		Example: `  factsys get --meta meta.yaml --params params.yaml 1 RTL_ALT`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseComponent(args[0])
			if err != nil {
				return err
			}
			c, err := a.open(cmd.Context(), &flags)
			if err != nil {
				return err
			}
			defer c.Close()

			f, ok := c.Fact(id, args[1])
			if !ok {
				return fmt.Errorf("%w: %d:%s", factsys.ErrFactNotFound, id, args[1])
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s = %s\n", f, f.ValueString())
			if d := f.ShortDescription(); d != "" {
				fmt.Fprintf(out, "  %s\n", d)
			}
			if m := f.MetaData(); m.HasRange() {
				fmt.Fprintf(out, "  range: %s .. %s\n", m.Format(m.Min()), m.Format(m.Max()))
			}
			fmt.Fprintf(out, "  default: %s\n", f.DefaultValueString())
			fmt.Fprintf(out, "  origin: %s\n", originName(c, f))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
