// Package tagger assigns a structural role to every member from its
// orientation, its elevation within the building, and the building type.
// User corrections from the learning tracker are applied last and always
// win over the computed assignment.
package tagger

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"framesight/internal/geometry"
	"framesight/internal/learning"
	"framesight/internal/model"
)

const (
	verticalAngleDeg   = 75
	horizontalAngleDeg = 15

	// Relative-elevation bands, as fractions of total height.
	roofBandMin       = 0.8
	eaveBandMin       = 0.6
	foundationBandMax = 0.2

	// Crane runway band, as fractions of the eave height.
	craneBandLow  = 0.70
	craneBandHigh = 0.92
	craneMinEave  = 5

	// endWallFraction: columns within this fraction of the longitudinal
	// extent from either end are end-wall columns.
	endWallFraction = 0.05
)

type Tagger struct {
	tracker *learning.Tracker
	log     *zap.Logger
}

// New builds a tagger. A nil tracker disables override application.
func New(tracker *learning.Tracker, log *zap.Logger) *Tagger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tagger{tracker: tracker, log: log}
}

// Result is one tagging run over a model.
type Result struct {
	Tags        map[string]model.MemberTag `json:"memberTags"`
	Confidences map[string]float64         `json:"confidences"`
	Counts      map[model.MemberTag]int    `json:"counts"`
	Overridden  int                        `json:"overridden"`
}

// memberView caches the per-member orientation and elevation facts the
// base lookup and the refinement passes both need.
type memberView struct {
	idx     int
	angle   float64
	relElev float64 // mean elevation over total height
	meanZ   float64
	length  float64
	longPos float64 // position along the longitudinal axis
}

// Apply tags every member in place and returns the run summary. Members
// whose endpoints cannot be resolved keep their current tag.
func (t *Tagger) Apply(m *model.Model, bt model.BuildingType) Result {
	if m.Geometry == nil {
		geometry.Attach(m)
	}
	g := *m.Geometry

	views := buildViews(m, g)

	res := Result{
		Tags:        make(map[string]model.MemberTag, len(m.Members)),
		Confidences: make(map[string]float64, len(m.Members)),
		Counts:      make(map[model.MemberTag]int),
	}

	for _, v := range views {
		tag, conf := baseTag(v, g, bt)
		set(m, &res, v.idx, tag, conf)
	}

	t.promoteColumns(m, &res, views)
	t.promotePurlins(m, &res, views)
	t.tagCraneBeams(m, &res, views, g, bt)
	t.applyOverrides(m, &res)

	for _, mem := range m.Members {
		res.Counts[mem.Tag]++
	}

	t.log.Info("member tagging complete",
		zap.String("model_id", m.ID),
		zap.String("building_type", bt.String()),
		zap.Int("members", len(m.Members)),
		zap.Int("overridden", res.Overridden))
	return res
}

func buildViews(m *model.Model, g model.Geometry) []memberView {
	alongX := g.Length >= g.Width

	views := make([]memberView, 0, len(m.Members))
	for i, mem := range m.Members {
		start := m.NodeByID(mem.StartNodeID)
		end := m.NodeByID(mem.EndNodeID)
		if start == nil || end == nil {
			continue
		}

		v := memberView{
			idx:   i,
			angle: geometry.AngleFromHorizontal(*start, *end),
			meanZ: (start.Z + end.Z) / 2,
			length: math.Sqrt((end.X-start.X)*(end.X-start.X) +
				(end.Y-start.Y)*(end.Y-start.Y) +
				(end.Z-start.Z)*(end.Z-start.Z)),
		}
		if g.Height > 0 {
			v.relElev = (v.meanZ - g.BBox.MinZ) / g.Height
		}
		if alongX {
			v.longPos = (start.X + end.X) / 2
		} else {
			v.longPos = (start.Y + end.Y) / 2
		}
		views = append(views, v)
	}
	return views
}

// baseTag is the orientation × elevation × building-type lookup.
func baseTag(v memberView, g model.Geometry, bt model.BuildingType) (model.MemberTag, float64) {
	switch {
	case v.angle > verticalAngleDeg:
		return columnTag(v, g)
	case v.angle < horizontalAngleDeg:
		return horizontalTag(v, g, bt)
	default:
		return diagonalTag(v, g, bt)
	}
}

func columnTag(v memberView, g model.Geometry) (model.MemberTag, float64) {
	extent := math.Max(g.Length, g.Width)
	if extent > 0 {
		longMin := g.BBox.MinX
		if g.Length < g.Width {
			longMin = g.BBox.MinY
		}
		edgeDist := math.Min(v.longPos-longMin, longMin+extent-v.longPos)
		if edgeDist <= endWallFraction*extent {
			return model.TagEndWallColumn, 0.75
		}
	}
	return model.TagMainFrameColumn, 0.80
}

func horizontalTag(v memberView, g model.Geometry, bt model.BuildingType) (model.MemberTag, float64) {
	switch {
	case v.relElev < foundationBandMax:
		return model.TagFoundationTie, 0.75
	case v.relElev > roofBandMin:
		switch {
		case bt.IsTruss():
			return model.TagTrussChord, 0.80
		case bt.IsCanopy():
			return model.TagCanopyBeam, 0.75
		case bt.IsMultiStory():
			return model.TagParapet, 0.60
		case bt == model.SignageBillboard:
			return model.TagFascia, 0.65
		default:
			return model.TagPurlin, 0.70
		}
	case v.relElev >= eaveBandMin:
		if bt.IsMultiStory() {
			return model.TagFloorBeam, 0.75
		}
		return model.TagTieBeam, 0.70
	default:
		if bt.IsMultiStory() {
			return model.TagFloorBeam, 0.75
		}
		return model.TagTieBeam, 0.65
	}
}

func diagonalTag(v memberView, g model.Geometry, bt model.BuildingType) (model.MemberTag, float64) {
	if v.relElev > roofBandMin || v.meanZ >= g.EaveHeight {
		if bt.IsTruss() {
			return model.TagTrussWeb, 0.80
		}
		if g.RoofSlopeDeg >= 3 {
			return model.TagRafter, 0.80
		}
	}
	return model.TagBrace, 0.70
}

// promoteColumns backfills columns when the orientation split found
// none at all: near-vertical diagonals are promoted, steepest first,
// up to four. A model with any genuine column is left alone.
func (t *Tagger) promoteColumns(m *model.Model, res *Result, views []memberView) {
	for _, mem := range m.Members {
		if mem.Tag.IsColumn() {
			return
		}
	}

	candidates := make([]memberView, 0)
	for _, v := range views {
		if v.angle > 60 && v.angle <= verticalAngleDeg {
			candidates = append(candidates, v)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].angle > candidates[j].angle
	})

	promoted := 0
	for _, v := range candidates {
		if promoted >= 4 {
			break
		}
		set(m, res, v.idx, model.TagMainFrameColumn, 0.60)
		promoted++
	}
}

// promotePurlins corrects flat-roof models where everything at roof
// level landed as purlins: when purlins dwarf rafters, the longest fifth
// of them are really the primary roof members.
func (t *Tagger) promotePurlins(m *model.Model, res *Result, views []memberView) {
	var purlins []memberView
	rafters := 0
	for _, v := range views {
		switch m.Members[v.idx].Tag {
		case model.TagPurlin:
			purlins = append(purlins, v)
		case model.TagRafter:
			rafters++
		}
	}
	if len(purlins) == 0 || len(purlins) <= 15*rafters {
		return
	}

	sort.Slice(purlins, func(i, j int) bool {
		return purlins[i].length > purlins[j].length
	})
	promote := len(purlins) / 5
	if promote == 0 {
		promote = 1
	}
	for _, v := range purlins[:promote] {
		set(m, res, v.idx, model.TagRafter, 0.60)
	}
}

// tagCraneBeams re-tags horizontal members riding in the runway band of
// an industrial building.
func (t *Tagger) tagCraneBeams(m *model.Model, res *Result, views []memberView, g model.Geometry, bt model.BuildingType) {
	if bt != model.IndustrialWarehouse || g.EaveHeight < craneMinEave {
		return
	}
	for _, v := range views {
		if v.angle >= horizontalAngleDeg {
			continue
		}
		if v.meanZ >= craneBandLow*g.EaveHeight && v.meanZ <= craneBandHigh*g.EaveHeight {
			set(m, res, v.idx, model.TagCraneBeam, 0.80)
		}
	}
}

func (t *Tagger) applyOverrides(m *model.Model, res *Result) {
	if t.tracker == nil {
		return
	}
	for id, tag := range t.tracker.MemberTagOverrides() {
		mem := m.MemberByID(id)
		if mem == nil {
			continue
		}
		mem.Tag = tag
		res.Tags[id] = tag
		res.Confidences[id] = 1.0
		res.Overridden++
	}
}

func set(m *model.Model, res *Result, idx int, tag model.MemberTag, conf float64) {
	m.Members[idx].Tag = tag
	res.Tags[m.Members[idx].ID] = tag
	res.Confidences[m.Members[idx].ID] = conf
}
