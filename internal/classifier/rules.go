package classifier

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"framesight/internal/geometry"
	"framesight/internal/model"
)

// Rule-cascade design constants. These come from calibrating against
// the labeled reference structures, not from any building code.
const (
	gableSlopeMinDeg    = 8
	monoSlopeMinDeg     = 3
	trussWebRatioMin    = 0.2
	craneBandLow        = 0.70
	craneBandHigh       = 0.92
	craneMinEave        = 5
	shaftHeightRatio    = 2.5
	signagePlanAspect   = 3
	signageMaxThickness = 5
	centroidOffsetMax   = 0.05
	canopyHeightRatio   = 0.25
	overhangCantilever  = 0.35
)

// memberStats is everything the predicates look at beyond the geometry
// block, computed once per cascade run.
type memberStats struct {
	total      int
	vertical   int
	horizontal int
	diagonal   int

	trussWebRatio  float64 // diagonal members living at roof level
	craneBandCount int     // horizontal members in the crane elevation band
	ridgeCount     int     // distinct ridge lines across the transverse axis
	ridgeCentered  bool    // ridge sits away from the transverse edges
	levelCount     int     // distinct elevation plateaus
	centroidOffset float64 // plan irregularity indicator
	overhangRatio  float64 // roof extent beyond the column footprint
}

type rule struct {
	name string
	eval func(g model.Geometry, s memberStats) (model.ClassificationResult, bool)
}

// runCascade evaluates the ordered predicates. Every predicate is
// guarded independently: a panic inside one is logged and evaluation
// falls through to the next, so the cascade can never abort.
func runCascade(m *model.Model, g model.Geometry, log *zap.Logger) model.ClassificationResult {
	stats := safeStats(m, g, log)

	for _, r := range cascade {
		result, matched := safeEval(r, g, stats, log)
		if matched {
			return result
		}
	}

	return model.ClassificationResult{
		SuggestedType: model.SingleGableHangar,
		Confidence:    0.5,
		Reasoning: []string{
			"no geometric predicate matched; generic default applied",
			fmt.Sprintf("geometry: length=%.1f width=%.1f height=%.1f slope=%.1f° frames=%d",
				g.Length, g.Width, g.Height, g.RoofSlopeDeg, g.FrameCount),
		},
	}
}

func safeEval(r rule, g model.Geometry, s memberStats, log *zap.Logger) (result model.ClassificationResult, matched bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Warn("classification predicate panicked, falling through",
				zap.String("predicate", r.name),
				zap.Any("panic", rec))
			matched = false
		}
	}()
	return r.eval(g, s)
}

func safeStats(m *model.Model, g model.Geometry, log *zap.Logger) (s memberStats) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Warn("member statistics failed, predicates run on zero stats",
				zap.Any("panic", rec))
			s = memberStats{}
		}
	}()
	return computeStats(m, g)
}

var cascade = []rule{
	{"crane-members", matchIndustrial},
	{"truss-gable", matchTrussGable},
	{"gable-hangar", matchGableHangar},
	{"mono-slope", matchMonoSlope},
	{"signage", matchSignage},
	{"shaft", matchShaft},
	{"standing-wall", matchStandingWall},
	{"multi-story", matchMultiStory},
	{"canopy", matchCanopy},
	{"temporary", matchTemporary},
}

func matchIndustrial(g model.Geometry, s memberStats) (model.ClassificationResult, bool) {
	if s.craneBandCount < 2 || g.EaveHeight < craneMinEave {
		return model.ClassificationResult{}, false
	}
	return model.ClassificationResult{
		SuggestedType: model.IndustrialWarehouse,
		Confidence:    0.80,
		Reasoning: []string{
			fmt.Sprintf("%d horizontal members sit in the crane elevation band (%.0f%%–%.0f%% of eave %.1f)",
				s.craneBandCount, craneBandLow*100, craneBandHigh*100, g.EaveHeight),
			fmt.Sprintf("eave height %.1f supports runway beams", g.EaveHeight),
		},
	}, true
}

func matchTrussGable(g model.Geometry, s memberStats) (model.ClassificationResult, bool) {
	if g.RoofSlopeDeg < gableSlopeMinDeg || g.FrameCount < 3 || !g.RegularBays {
		return model.ClassificationResult{}, false
	}
	if s.trussWebRatio < trussWebRatioMin || !s.ridgeCentered {
		return model.ClassificationResult{}, false
	}
	bt := model.TrussSingleGable
	if s.ridgeCount >= 2 {
		bt = model.TrussDoubleGable
	}
	return model.ClassificationResult{
		SuggestedType: bt,
		Confidence:    0.85,
		Reasoning: []string{
			fmt.Sprintf("roof slope %.1f° with %d regular bays", g.RoofSlopeDeg, g.FrameCount),
			fmt.Sprintf("truss web density %.2f (diagonals at roof level)", s.trussWebRatio),
			fmt.Sprintf("%d ridge line(s) detected", s.ridgeCount),
		},
	}, true
}

func matchGableHangar(g model.Geometry, s memberStats) (model.ClassificationResult, bool) {
	if g.RoofSlopeDeg < gableSlopeMinDeg || g.FrameCount < 2 || !s.ridgeCentered {
		return model.ClassificationResult{}, false
	}
	bt := model.SingleGableHangar
	if s.ridgeCount >= 2 {
		bt = model.MultiGableHangar
	}
	return model.ClassificationResult{
		SuggestedType: bt,
		Confidence:    0.82,
		Reasoning: []string{
			fmt.Sprintf("centered ridge with roof slope %.1f°", g.RoofSlopeDeg),
			fmt.Sprintf("%d frame lines over a %.1f × %.1f footprint", g.FrameCount, g.Length, g.Width),
			fmt.Sprintf("%d ridge line(s) detected", s.ridgeCount),
		},
	}, true
}

func matchMonoSlope(g model.Geometry, s memberStats) (model.ClassificationResult, bool) {
	if g.RoofSlopeDeg < monoSlopeMinDeg || s.ridgeCentered {
		return model.ClassificationResult{}, false
	}
	span := math.Min(g.Length, g.Width)
	bt := model.MonoSlopeBuilding
	if span >= 15 {
		bt = model.MonoSlopeHangar
	}
	return model.ClassificationResult{
		SuggestedType: bt,
		Confidence:    0.75,
		Reasoning: []string{
			fmt.Sprintf("high edge at one side only, slope %.1f°", g.RoofSlopeDeg),
			fmt.Sprintf("clear span %.1f", span),
		},
	}, true
}

func matchSignage(g model.Geometry, s memberStats) (model.ClassificationResult, bool) {
	maxPlan := math.Max(g.Length, g.Width)
	minPlan := math.Min(g.Length, g.Width)
	if minPlan <= 0 || minPlan > signageMaxThickness {
		return model.ClassificationResult{}, false
	}
	if maxPlan/minPlan < signagePlanAspect || g.Height < 2*maxPlan {
		return model.ClassificationResult{}, false
	}
	return model.ClassificationResult{
		SuggestedType: model.SignageBillboard,
		Confidence:    0.75,
		Reasoning: []string{
			fmt.Sprintf("planar footprint %.1f × %.1f under height %.1f", g.Length, g.Width, g.Height),
			fmt.Sprintf("height-to-span ratio %.1f", g.Height/maxPlan),
		},
	}, true
}

func matchShaft(g model.Geometry, s memberStats) (model.ClassificationResult, bool) {
	maxPlan := math.Max(g.Length, g.Width)
	if maxPlan <= 0 || g.Height/maxPlan < shaftHeightRatio {
		return model.ClassificationResult{}, false
	}
	return model.ClassificationResult{
		SuggestedType: model.ElevatorShaft,
		Confidence:    0.78,
		Reasoning: []string{
			fmt.Sprintf("tall-and-narrow footprint: height %.1f over max plan dimension %.1f (ratio %.1f)",
				g.Height, maxPlan, g.Height/maxPlan),
		},
	}, true
}

func matchStandingWall(g model.Geometry, s memberStats) (model.ClassificationResult, bool) {
	minPlan := math.Min(g.Length, g.Width)
	maxPlan := math.Max(g.Length, g.Width)
	if g.RoofSlopeDeg > 0 || minPlan > 1.5 || g.Height > 2*maxPlan || maxPlan < 4 {
		return model.ClassificationResult{}, false
	}
	return model.ClassificationResult{
		SuggestedType: model.StandingWall,
		Confidence:    0.70,
		Reasoning: []string{
			fmt.Sprintf("flat planar structure %.1f long, %.1f thick, %.1f tall", maxPlan, minPlan, g.Height),
		},
	}, true
}

func matchMultiStory(g model.Geometry, s memberStats) (model.ClassificationResult, bool) {
	if s.levelCount < 3 || g.RoofSlopeDeg >= monoSlopeMinDeg || s.vertical < 4 {
		return model.ClassificationResult{}, false
	}
	bt := model.SymmetricMultiStory
	if s.centroidOffset > centroidOffsetMax {
		bt = model.ComplexMultiStory
	}
	return model.ClassificationResult{
		SuggestedType: bt,
		Confidence:    0.72,
		Reasoning: []string{
			fmt.Sprintf("%d elevation plateaus with %d columns and flat roof (slope %.1f°)",
				s.levelCount, s.vertical, g.RoofSlopeDeg),
			fmt.Sprintf("plan centroid offset %.3f", s.centroidOffset),
		},
	}, true
}

func matchCanopy(g model.Geometry, s memberStats) (model.ClassificationResult, bool) {
	maxPlan := math.Max(g.Length, g.Width)
	if maxPlan <= 0 || g.RoofSlopeDeg >= monoSlopeMinDeg {
		return model.ClassificationResult{}, false
	}
	if g.Height >= canopyHeightRatio*maxPlan || s.total == 0 {
		return model.ClassificationResult{}, false
	}
	if float64(s.vertical)/float64(s.total) > 0.3 {
		return model.ClassificationResult{}, false
	}
	bt := model.CarShedCanopy
	if s.overhangRatio > overhangCantilever {
		bt = model.CantileverRoof
	}
	return model.ClassificationResult{
		SuggestedType: bt,
		Confidence:    0.70,
		Reasoning: []string{
			fmt.Sprintf("flat low roof: height %.1f against %.1f plan extent", g.Height, maxPlan),
			fmt.Sprintf("columns are %d of %d members; roof overhang ratio %.2f",
				s.vertical, s.total, s.overhangRatio),
		},
	}, true
}

func matchTemporary(g model.Geometry, s memberStats) (model.ClassificationResult, bool) {
	maxPlan := math.Max(g.Length, g.Width)
	if s.total > 12 || maxPlan > 25 || g.Height > 8 {
		return model.ClassificationResult{}, false
	}
	return model.ClassificationResult{
		SuggestedType: model.TemporaryStructure,
		Confidence:    0.65,
		Reasoning: []string{
			fmt.Sprintf("small structure: %d members, %.1f plan extent, %.1f tall",
				s.total, maxPlan, g.Height),
		},
	}, true
}

func computeStats(m *model.Model, g model.Geometry) memberStats {
	var s memberStats
	s.total = len(m.Members)

	// column footprint for the overhang signal
	colMinX, colMaxX := math.Inf(1), math.Inf(-1)
	colMinY, colMaxY := math.Inf(1), math.Inf(-1)

	for _, mem := range m.Members {
		start := m.NodeByID(mem.StartNodeID)
		end := m.NodeByID(mem.EndNodeID)
		if start == nil || end == nil {
			continue
		}

		angle := geometry.AngleFromHorizontal(*start, *end)
		meanZ := (start.Z + end.Z) / 2

		switch {
		case angle > 75:
			s.vertical++
			colMinX = math.Min(colMinX, math.Min(start.X, end.X))
			colMaxX = math.Max(colMaxX, math.Max(start.X, end.X))
			colMinY = math.Min(colMinY, math.Min(start.Y, end.Y))
			colMaxY = math.Max(colMaxY, math.Max(start.Y, end.Y))
		case angle < 15:
			s.horizontal++
			if g.EaveHeight >= craneMinEave &&
				meanZ >= craneBandLow*g.EaveHeight && meanZ <= craneBandHigh*g.EaveHeight {
				s.craneBandCount++
			}
		default:
			s.diagonal++
			if g.EaveHeight > 0 && meanZ >= g.EaveHeight {
				s.trussWebRatio++ // counted here, normalized below
			}
		}
	}
	if s.total > 0 {
		s.trussWebRatio /= float64(s.total)
	}

	s.ridgeCount, s.ridgeCentered = ridgeLines(m.Nodes, g)
	s.levelCount = elevationLevels(m.Nodes, g)
	s.centroidOffset = planCentroidOffset(m.Nodes, g)
	s.overhangRatio = overhang(g, colMinX, colMaxX, colMinY, colMaxY)

	return s
}

// ridgeLines clusters the highest nodes along the transverse axis:
// one cluster per gable ridge. Centered means no ridge hugs an edge.
func ridgeLines(nodes []model.Node, g model.Geometry) (int, bool) {
	if len(nodes) == 0 || g.Height <= 0 {
		return 0, false
	}
	ridgeZ := g.BBox.MaxZ - 0.02*g.Height

	alongX := g.Length >= g.Width
	transverseExtent := g.Width
	transverseMin := g.BBox.MinY
	if !alongX {
		transverseExtent = g.Length
		transverseMin = g.BBox.MinX
	}
	if transverseExtent <= 0 {
		return 1, false
	}

	var positions []float64
	for _, n := range nodes {
		if n.Z < ridgeZ {
			continue
		}
		if alongX {
			positions = append(positions, n.Y)
		} else {
			positions = append(positions, n.X)
		}
	}
	if len(positions) == 0 {
		return 0, false
	}
	sort.Float64s(positions)

	count := 1
	centered := true
	last := positions[0]
	for _, p := range positions[1:] {
		if p-last > 0.1*transverseExtent {
			count++
		}
		last = p
	}
	for _, p := range positions {
		edgeDist := math.Min(p-transverseMin, transverseMin+transverseExtent-p)
		if edgeDist < 0.2*transverseExtent {
			centered = false
			break
		}
	}
	return count, centered
}

// elevationLevels counts distinct Z plateaus, bucketed to 1% of height.
func elevationLevels(nodes []model.Node, g model.Geometry) int {
	if g.Height <= 0 {
		return 1
	}
	step := g.Height / 100
	buckets := make(map[int]bool)
	for _, n := range nodes {
		buckets[int(math.Round((n.Z-g.BBox.MinZ)/step))] = true
	}
	return len(buckets)
}

// planCentroidOffset measures how far the node centroid sits from the
// bounding-box center, as a fraction of the plan dimensions.
func planCentroidOffset(nodes []model.Node, g model.Geometry) float64 {
	if len(nodes) == 0 {
		return 0
	}
	var cx, cy float64
	for _, n := range nodes {
		cx += n.X
		cy += n.Y
	}
	cx /= float64(len(nodes))
	cy /= float64(len(nodes))

	offX := math.Abs(cx-g.Center[0]) / math.Max(g.Length, 1)
	offY := math.Abs(cy-g.Center[1]) / math.Max(g.Width, 1)
	return math.Max(offX, offY)
}

// overhang reports how far the overall footprint extends past the
// column footprint, as a fraction of the larger plan extent.
func overhang(g model.Geometry, colMinX, colMaxX, colMinY, colMaxY float64) float64 {
	if math.IsInf(colMinX, 1) {
		return 0
	}
	maxPlan := math.Max(g.Length, g.Width)
	if maxPlan <= 0 {
		return 0
	}
	over := math.Max(colMinX-g.BBox.MinX, g.BBox.MaxX-colMaxX)
	over = math.Max(over, math.Max(colMinY-g.BBox.MinY, g.BBox.MaxY-colMaxY))
	if over < 0 {
		over = 0
	}
	return over / maxPlan
}
