package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"framesight/internal/model"
)

func newCorrectCmd(opts *rootOptions) *cobra.Command {
	var (
		predictionID string
		kindName     string
		subjectID    string
		previous     string
		next         string
		confidence   float64
		reasoning    string
	)

	cmd := &cobra.Command{
		Use:   "correct",
		Short: "Record a correction and forward it as learning signal",
		Long: `Correct records a user correction to a prior classification or member
tag. The correction is accepted locally even when the remote service
cannot be reached; forwarding is retried best-effort.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			var kind model.CorrectionKind
			switch kindName {
			case string(model.CorrectionBuildingType):
				kind = model.CorrectionBuildingType
				if _, err := model.ParseBuildingType(next); err != nil {
					return err
				}
			case string(model.CorrectionMemberTag):
				kind = model.CorrectionMemberTag
				if _, err := model.ParseMemberTag(next); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown correction kind %q (want %s or %s)",
					kindName, model.CorrectionBuildingType, model.CorrectionMemberTag)
			}

			res := a.tracker.SubmitCorrection(cmd.Context(), model.Correction{
				PredictionID:       predictionID,
				Kind:               kind,
				SubjectID:          subjectID,
				PreviousValue:      previous,
				NewValue:           next,
				PreviousConfidence: confidence,
				Reasoning:          reasoning,
			})

			if a.output == "json" {
				return printJSON(res)
			}
			good.Printf("Correction %s accepted\n", res.CorrectionID)
			if res.RemoteAck {
				fmt.Println("  forwarded to the learning service")
			} else {
				warn.Println("  remote forward pending; it will be retried")
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&predictionID, "prediction", "", "prediction id the correction amends")
	f.StringVar(&kindName, "kind", string(model.CorrectionBuildingType),
		"correction kind: BUILDING_TYPE or MEMBER_TAG")
	f.StringVar(&subjectID, "subject", "", "model id (building type) or member id (member tag)")
	f.StringVar(&previous, "old", "", "the value being corrected")
	f.StringVar(&next, "new", "", "the corrected value")
	f.Float64Var(&confidence, "old-confidence", 0, "confidence of the value being corrected")
	f.StringVar(&reasoning, "reasoning", "", "optional note on why the correction is right")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("new")
	return cmd
}
