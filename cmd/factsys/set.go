package main

import (
	"context"
	"fmt"

	"github.com/groundstation/factsys"
	"github.com/groundstation/factsys/document"
	"github.com/groundstation/factsys/jsonptr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSetCmd(a *app) *cobra.Command {
	var flags containerFlags
	cmd := &cobra.Command{
		Use:   "set COMPONENT NAME VALUE",
		Short: "Validate, apply and save one parameter",
		Long: `Writes VALUE through the parameter's validation policy and saves it to the
params file. With --policy reject (the default) values outside the declared
range fail; clamp stores the nearest bound; accept stores any value.`,
		Example: `  factsys set --meta meta.yaml --params params.yaml 1 RTL_ALT 120
  factsys set --meta meta.yaml --params params.yaml --policy clamp 1 RTL_ALT 5000`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseComponent(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c, err := a.open(ctx, &flags)
			if err != nil {
				return err
			}
			defer c.Close()

			f, ok := c.Fact(id, args[1])
			if ok {
				if err := c.SetValue(id, args[1], args[2]); err != nil {
					return err
				}
				if err := c.Save(ctx); err != nil {
					return err
				}
			} else if f, err = create(ctx, c, &flags, id, args[1], args[2]); err != nil {
				return err
			}
			a.logger.Debug("parameter saved", zap.Stringer("fact", f), zap.String("path", flags.paramsPath))
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", f, f.ValueString())
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&flags.policy, "policy", "reject", "validation policy: reject, clamp or accept")
	return cmd
}

// create adds a parameter that no layer defines yet. The value is validated
// like a write, added to the params file and picked up with Reload.
func create(ctx context.Context, c *factsys.Container, flags *containerFlags, id int, name, raw string) (*factsys.Fact, error) {
	m, ok := c.Registry().Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: no metadata for %s", factsys.ErrFactNotFound, name)
	}
	policy, err := factsys.ParsePolicy(flags.policy)
	if err != nil {
		return nil, err
	}
	v, err := factsys.Coerce(m.Type(), raw)
	if err != nil {
		return nil, fmt.Errorf("%d:%s: %w", id, name, err)
	}
	accepted, err := policy.Validate(m, v)
	if err != nil {
		return nil, err
	}

	var ps document.JSONPatchSet
	ps.Add(jsonptr.ParameterPath(id, name), accepted.Interface())
	if err := c.GetLayer(paramsLayer).Save(ctx, ps); err != nil {
		return nil, fmt.Errorf("failed to save layer %q: %w", paramsLayer, err)
	}
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	f, ok := c.Fact(id, name)
	if !ok {
		return nil, fmt.Errorf("%w: %d:%s", factsys.ErrFactNotFound, id, name)
	}
	return f, nil
}
