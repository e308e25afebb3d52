package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"framesight/internal/model"
)

func newTagCmd(opts *rootOptions) *cobra.Command {
	var (
		localRules bool
		typeName   string
	)

	cmd := &cobra.Command{
		Use:   "tag FILE",
		Short: "Assign a structural role to every member",
		Long: `Tag classifies the building first (or takes --type) and then assigns
each member a role from its orientation, elevation, and the building
type. Manual tag corrections recorded this session win over computed
assignments.`,
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

			bt, res, err := resolveBuildingType(cmd, a, m, typeName, localRules)
			if err != nil {
				return err
			}

			tags := a.tagger.Apply(m, bt)

			if a.output == "json" {
				return printJSON(struct {
					BuildingType model.BuildingType         `json:"buildingType"`
					Tags         map[string]model.MemberTag `json:"memberTags"`
					Confidences  map[string]float64         `json:"confidences"`
				}{bt, tags.Tags, tags.Confidences})
			}
			printModelSummary(m)
			if res != nil {
				printClassification(*res)
			} else {
				heading.Println("Classification")
				fmt.Printf("  type: %s (set with --type)\n", bt)
			}
			printTagging(tags)
			return nil
		},
	}

	cmd.Flags().BoolVar(&localRules, "local-rules", false,
		"use the geometric rule cascade instead of the remote service")
	cmd.Flags().StringVar(&typeName, "type", "",
		"skip classification and tag for this building type (e.g. SINGLE_GABLE_HANGAR)")
	return cmd
}

// resolveBuildingType yields the type to tag/validate against: an
// explicit --type, the rule cascade, or the remote service.
func resolveBuildingType(cmd *cobra.Command, a *app, m *model.Model, typeName string, localRules bool) (model.BuildingType, *model.ClassificationResult, error) {
	if typeName != "" {
		bt, err := model.ParseBuildingType(typeName)
		if err != nil {
			return model.BuildingUnknown, nil, err
		}
		return bt, nil, nil
	}
	if localRules {
		res := a.classifier.ClassifyLocal(m)
		return res.SuggestedType, &res, nil
	}
	res, err := a.classifier.Classify(cmd.Context(), m)
	if err != nil {
		return model.BuildingUnknown, nil, err
	}
	return res.SuggestedType, &res, nil
}
