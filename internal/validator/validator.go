// Package validator runs advisory checks over a tagged model. Checks
// never fail the pipeline; they produce issues for the user to weigh.
package validator

import (
	"fmt"

	"go.uber.org/zap"

	"framesight/internal/geometry"
	"framesight/internal/model"
)

const (
	minBracingRatio = 0.10

	// minPrimaryForBracing: the bracing check applies only to models
	// with more than this many primary load-carrying members.
	minPrimaryForBracing = 10

	// maxRoofTagsBelowEave is the tolerated share of roof-tagged members
	// sitting below the eave before consistency is flagged.
	maxRoofTagsBelowEave = 0.30

	// maxUngroundedColumns is the tolerated share of columns whose lowest
	// node is not near the ground plane.
	maxUngroundedColumns = 0.20

	// groundBand: a column is grounded when its lowest node is within
	// this fraction of the total height from the base.
	groundBand = 0.10
)

// Severity grades an issue. There are no errors here: a structurally
// suspicious model still classifies and tags.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
)

// Issue is one advisory finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// Report collects the findings of one validation run.
type Report struct {
	Issues []Issue `json:"issues"`
}

func (r Report) Warnings() int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			n++
		}
	}
	return n
}

func (r *Report) add(sev Severity, code, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{
		Severity: sev,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	})
}

type Validator struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{log: log}
}

// Validate runs the completeness, consistency, and type-requirement
// checks against a tagged model.
func (v *Validator) Validate(m *model.Model, bt model.BuildingType) Report {
	if m.Geometry == nil {
		geometry.Attach(m)
	}
	g := *m.Geometry

	var rep Report
	v.checkCompleteness(m, &rep)
	v.checkConsistency(m, g, &rep)
	v.checkTypeRequirements(m, bt, &rep)

	v.log.Info("validation complete",
		zap.String("model_id", m.ID),
		zap.Int("issues", len(rep.Issues)),
		zap.Int("warnings", rep.Warnings()))
	return rep
}

func (v *Validator) checkCompleteness(m *model.Model, rep *Report) {
	if len(m.Members) == 0 {
		rep.add(SeverityWarning, "NO_MEMBERS", "model has no members")
		return
	}

	primary, bracing, columns := 0, 0, 0
	for _, mem := range m.Members {
		switch {
		case mem.Tag.IsPrimary():
			primary++
		case mem.Tag.IsBracing():
			bracing++
		case mem.Tag.IsColumn():
			columns++
		}
	}

	if columns == 0 {
		rep.add(SeverityWarning, "NO_COLUMNS", "no members tagged as columns; vertical load path is unclear")
	}
	if primary == 0 {
		rep.add(SeverityWarning, "NO_PRIMARY_MEMBERS", "no primary load-carrying members tagged")
	}
	if primary > minPrimaryForBracing {
		ratio := float64(bracing) / float64(len(m.Members))
		if ratio < minBracingRatio {
			rep.add(SeverityWarning, "LOW_BRACING",
				"bracing members are %.0f%% of the model, below the %.0f%% expected for a structure of this size",
				ratio*100, minBracingRatio*100)
		}
	}
}

func (v *Validator) checkConsistency(m *model.Model, g model.Geometry, rep *Report) {
	if g.Height <= 0 {
		return
	}

	roofTagged, roofBelowEave := 0, 0
	columns, ungrounded := 0, 0

	for _, mem := range m.Members {
		start := m.NodeByID(mem.StartNodeID)
		end := m.NodeByID(mem.EndNodeID)
		if start == nil || end == nil {
			continue
		}

		if mem.Tag.IsRoof() {
			roofTagged++
			if (start.Z+end.Z)/2 < g.EaveHeight {
				roofBelowEave++
			}
		}
		if mem.Tag.IsColumn() {
			columns++
			low := start.Z
			if end.Z < low {
				low = end.Z
			}
			if low-g.BBox.MinZ > groundBand*g.Height {
				ungrounded++
			}
		}
	}

	if roofTagged > 0 {
		share := float64(roofBelowEave) / float64(roofTagged)
		if share > maxRoofTagsBelowEave {
			rep.add(SeverityWarning, "ROOF_TAGS_BELOW_EAVE",
				"%.0f%% of roof-tagged members sit below the eave height %.1f; tags and geometry disagree",
				share*100, g.EaveHeight)
		}
	}
	if columns > 0 {
		share := float64(ungrounded) / float64(columns)
		if share > maxUngroundedColumns {
			rep.add(SeverityWarning, "UNGROUNDED_COLUMNS",
				"%.0f%% of columns do not reach within %.0f%% of the base elevation",
				share*100, groundBand*100)
		}
	}
}

// checkTypeRequirements flags members the classified type implies but
// the tagging never produced.
func (v *Validator) checkTypeRequirements(m *model.Model, bt model.BuildingType, rep *Report) {
	have := make(map[model.MemberTag]bool)
	for _, mem := range m.Members {
		have[mem.Tag] = true
	}

	require := func(tag model.MemberTag, code string) {
		if !have[tag] {
			rep.add(SeverityInfo, code,
				"building type %s usually has %s members, but none were tagged", bt, tag)
		}
	}

	switch {
	case bt.IsTruss():
		require(model.TagTrussChord, "MISSING_TRUSS_CHORDS")
		require(model.TagTrussWeb, "MISSING_TRUSS_WEBS")
	case bt.IsHangar():
		require(model.TagMainFrameColumn, "MISSING_FRAME_COLUMNS")
		require(model.TagRafter, "MISSING_RAFTERS")
	case bt == model.IndustrialWarehouse:
		require(model.TagCraneBeam, "MISSING_CRANE_BEAMS")
		require(model.TagMainFrameColumn, "MISSING_FRAME_COLUMNS")
	case bt.IsMultiStory():
		require(model.TagFloorBeam, "MISSING_FLOOR_BEAMS")
	case bt.IsCanopy():
		require(model.TagCanopyBeam, "MISSING_CANOPY_BEAMS")
	}
}
