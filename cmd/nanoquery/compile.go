package main

import (
	"github.com/spf13/cobra"

	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/types"
)

func newCompileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compile [file]",
		Short: "Compile a filter expression into a predicate",
		Long: `Compile reads a filter expression (JSON or YAML) from file or standard input
and prints the compiled predicate. No schema is needed: compilation is
permissive and never fails on unknown fields or operators.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.readInput("compile filter", args)
			if err != nil {
				return err
			}
			expr, err := types.Decode(data)
			if err != nil {
				return NewInputError("compile filter", "filter expression", err)
			}
			return a.render(filter.NewCompiler(filter.WithLogger(a.logger)).Compile(expr))
		},
	}
}
