package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/groundstation/factsys"
	"github.com/groundstation/factsys/internal/cmd/cmdutil"
	"github.com/groundstation/factsys/layer"
	"github.com/groundstation/factsys/layer/env"
	"github.com/groundstation/factsys/source/fs"
	"github.com/spf13/cobra"
)

const (
	paramsLayer layer.Name = "params"
	envLayer    layer.Name = "env"
)

// containerFlags are the flags of every command working on a Container.
type containerFlags struct {
	metaPath   string
	paramsPath string
	envPrefix  string
	policy     string
}

func (f *containerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.metaPath, "meta", "", "metadata document (required)")
	cmd.Flags().StringVar(&f.paramsPath, "params", "", "parameter document (required)")
	cmd.Flags().StringVar(&f.envPrefix, "env-prefix", "FACTSYS_", "prefix of parameter environment variables, empty to disable")
	_ = cmd.MarkFlagRequired("meta")
	_ = cmd.MarkFlagRequired("params")
}

// open builds and loads a Container: the environment layer below the params
// file, which receives accepted writes.
func (a *app) open(ctx context.Context, f *containerFlags, opts ...factsys.ContainerOption) (*factsys.Container, error) {
	reg, err := cmdutil.LoadRegistry(ctx, f.metaPath)
	if err != nil {
		return nil, err
	}
	policy, err := factsys.ParsePolicy(f.policy)
	if err != nil {
		return nil, err
	}

	params, err := cmdutil.FileLayer(paramsLayer, f.paramsPath, fs.WithOptional())
	if err != nil {
		return nil, err
	}

	c := factsys.NewContainer(reg, append([]factsys.ContainerOption{
		factsys.WithLogger(a.logger),
		factsys.WithPolicy(policy),
		factsys.WithWriteLayer(paramsLayer),
	}, opts...)...)
	if f.envPrefix != "" {
		if err := c.Add(env.New(envLayer, f.envPrefix), factsys.WithPriority(factsys.PriorityEnv), factsys.WithNoWatch()); err != nil {
			return nil, err
		}
	}
	if err := c.Add(params, factsys.WithPriority(factsys.PriorityUser)); err != nil {
		return nil, err
	}
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func parseComponent(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid component id %q", s)
	}
	return id, nil
}

func originName(c *factsys.Container, f *factsys.Fact) string {
	if o := c.Origin(f.ComponentID(), f.Name()); o != nil {
		return string(o.Name())
	}
	return "default"
}
