package main

import (
	"github.com/spf13/cobra"

	"framesight/internal/model"
	"framesight/internal/tagger"
	"framesight/internal/validator"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var (
		localRules bool
		typeName   string
	)

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Run advisory structural checks on a tagged model",
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

			bt, _, err := resolveBuildingType(cmd, a, m, typeName, localRules)
			if err != nil {
				return err
			}

			tags := a.tagger.Apply(m, bt)
			rep := a.validator.Validate(m, bt)

			if a.output == "json" {
				return printJSON(struct {
					BuildingType model.BuildingType `json:"buildingType"`
					Tags         tagger.Result      `json:"tagging"`
					Report       validator.Report   `json:"validation"`
				}{bt, tags, rep})
			}
			printModelSummary(m)
			printTagging(tags)
			printValidation(rep)
			return nil
		},
	}

	cmd.Flags().BoolVar(&localRules, "local-rules", false,
		"use the geometric rule cascade instead of the remote service")
	cmd.Flags().StringVar(&typeName, "type", "",
		"skip classification and validate against this building type")
	return cmd
}
