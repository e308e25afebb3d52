package main

import (
	"github.com/spf13/cobra"

	"framesight/internal/geometry"
)

func newParseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a structural model file and report its geometry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			m, err := a.parseFile(args[0])
			if err != nil {
				return err
			}
			geometry.Attach(m)

			if a.output == "json" {
				return printJSON(m)
			}
			printModelSummary(m)
			return nil
		},
	}
}
