package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"

	"framesight/internal/model"
	"framesight/internal/tagger"
	"framesight/internal/validator"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	good    = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	faint   = color.New(color.Faint)
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printModelSummary(m *model.Model) {
	heading.Printf("Model %s\n", m.ID)
	fmt.Printf("  source:   %s (%s)\n", m.SourceFile, m.Dialect)
	fmt.Printf("  nodes:    %d\n", len(m.Nodes))
	fmt.Printf("  members:  %d\n", len(m.Members))

	units := fmt.Sprintf("%s / %s", m.Units.Length, m.Units.Force)
	if m.Units.Inferred {
		units += faint.Sprint(" (inferred from coordinate magnitude)")
	}
	fmt.Printf("  units:    %s\n", units)

	if g := m.Geometry; g != nil {
		heading.Println("Geometry")
		fmt.Printf("  footprint:  %.1f × %.1f\n", g.Length, g.Width)
		fmt.Printf("  height:     %.1f (eave %.1f)\n", g.Height, g.EaveHeight)
		fmt.Printf("  roof slope: %.1f°\n", g.RoofSlopeDeg)
		fmt.Printf("  frames:     %d", g.FrameCount)
		if g.RegularBays {
			good.Print("  regular bays")
		}
		fmt.Println()
	}
}

func printClassification(res model.ClassificationResult) {
	heading.Println("Classification")
	fmt.Printf("  type:       %s\n", good.Sprint(res.SuggestedType))
	fmt.Printf("  confidence: %.2f\n", res.Confidence)
	fmt.Printf("  source:     %s\n", res.Source)
	if len(res.Reasoning) > 0 {
		fmt.Println("  reasoning:")
		for _, r := range res.Reasoning {
			fmt.Printf("    - %s\n", r)
		}
	}
	for _, alt := range res.Alternatives {
		faint.Printf("  alternative: %s (%.2f)\n", alt.Type, alt.Confidence)
	}
}

func printTagging(res tagger.Result) {
	heading.Println("Member tags")

	tags := make([]model.MemberTag, 0, len(res.Counts))
	for tag := range res.Counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		return res.Counts[tags[i]] > res.Counts[tags[j]]
	})
	for _, tag := range tags {
		fmt.Printf("  %-20s %d\n", tag, res.Counts[tag])
	}
	if res.Overridden > 0 {
		warn.Printf("  %d tag(s) set by manual override\n", res.Overridden)
	}
}

func printValidation(rep validator.Report) {
	heading.Println("Validation")
	if len(rep.Issues) == 0 {
		good.Println("  no issues found")
		return
	}
	for _, issue := range rep.Issues {
		line := fmt.Sprintf("  [%s] %s: %s", issue.Severity, issue.Code, issue.Message)
		if issue.Severity == validator.SeverityWarning {
			warn.Println(line)
		} else {
			fmt.Println(line)
		}
	}
}
