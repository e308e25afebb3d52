package main

import (
	"github.com/spf13/cobra"

	"framesight/internal/model"
)

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	var localRules bool

	cmd := &cobra.Command{
		Use:   "classify FILE",
		Short: "Classify the building type of a structural model",
		Long: `Classify parses the file and asks the remote learned service for a
building type. When the service is unreachable the command fails;
pass --local-rules to use the geometric rule cascade instead.`,
		Args: cobra.ExactArgs(1),
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

			var res model.ClassificationResult
			if localRules {
				res = a.classifier.ClassifyLocal(m)
			} else {
				res, err = a.classifier.Classify(cmd.Context(), m)
				if err != nil {
					return err
				}
			}

			if a.output == "json" {
				return printJSON(res)
			}
			printModelSummary(m)
			printClassification(res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&localRules, "local-rules", false,
		"use the geometric rule cascade instead of the remote service")
	return cmd
}
