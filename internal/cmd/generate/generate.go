// Package generate provides the "generate" command, which emits Go constants
// for the parameter names declared in a metadata document.
package generate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/groundstation/factsys/internal/cmd/cmdutil"
	"github.com/spf13/cobra"
)

// Options holds the command-line options for the generator.
type Options struct {
	MetaPath    string
	Output      string
	PackageName string
	Prefix      string
}

// NewCommand returns the generate command.
func NewCommand() *cobra.Command {
	var opts Options
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate Go constants for parameter names",
		Long: `Reads a metadata document and writes one Go constant per parameter name,
documented with the parameter's short description and units.

Examples:
  factsys generate --meta params_meta.yaml --package vehicle
  factsys generate --meta params_meta.yaml --package vehicle --out params_gen.go

For use with go:generate:
  //go:generate go tool factsys generate --meta params_meta.yaml --package vehicle`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.MetaPath, "meta", "", "metadata document (required)")
	cmd.Flags().StringVar(&opts.Output, "out", "", "output file path (default: <meta>_params.go, \"-\" for stdout)")
	cmd.Flags().StringVar(&opts.PackageName, "package", "", "output package name (required)")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "Param", "prefix of the generated constant names")
	_ = cmd.MarkFlagRequired("meta")
	_ = cmd.MarkFlagRequired("package")
	return cmd
}

func run(cmd *cobra.Command, opts Options) error {
	reg, err := cmdutil.LoadRegistry(cmd.Context(), opts.MetaPath)
	if err != nil {
		return err
	}

	output := opts.Output
	if output == "" {
		output = defaultOutputFile(opts.MetaPath)
	}

	code, err := generateCode(reg, GeneratorConfig{
		PackageName: opts.PackageName,
		Prefix:      opts.Prefix,
		SourceFile:  filepath.Base(opts.MetaPath),
		Output:      output,
	})
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	if output == "-" {
		_, err := cmd.OutOrStdout().Write(code)
		return err
	}
	if err := os.WriteFile(output, code, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "generated %s\n", output)
	return nil
}

// defaultOutputFile returns the output file name derived from the metadata file.
// e.g., "params_meta.yaml" -> "params_meta_params.go"
func defaultOutputFile(metaPath string) string {
	dir := filepath.Dir(metaPath)
	base := filepath.Base(metaPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, name+"_params.go")
}
