// Package geometry derives building-level metrics from a node/member
// graph. Everything here is a pure function of its inputs; derived
// values are recomputed, never patched.
package geometry

import (
	"math"
	"sort"

	"framesight/internal/model"
)

const (
	// maxRoofSlopeDeg is the sanity bound on computed roof slope; larger
	// values are discarded in favor of a flat roof.
	maxRoofSlopeDeg = 60

	// baySpacingTolerance is the maximum deviation from the mean spacing
	// (as a fraction of the mean) for bays to count as regular.
	baySpacingTolerance = 0.15

	// verticalAngleDeg: members steeper than this (from horizontal) are
	// treated as columns for frame detection.
	verticalAngleDeg = 75
)

// Derive computes the full geometry block for the given graph. An empty
// node set yields a zero Geometry rather than an error: classification
// is expected to degrade, not crash.
func Derive(nodes []model.Node, members []model.Member) model.Geometry {
	var g model.Geometry
	if len(nodes) == 0 {
		return g
	}

	g.BBox = boundingBox(nodes)
	g.Length = g.BBox.MaxX - g.BBox.MinX
	g.Width = g.BBox.MaxY - g.BBox.MinY
	g.Height = g.BBox.MaxZ - g.BBox.MinZ
	g.Center = [3]float64{
		(g.BBox.MinX + g.BBox.MaxX) / 2,
		(g.BBox.MinY + g.BBox.MaxY) / 2,
		(g.BBox.MinZ + g.BBox.MaxZ) / 2,
	}

	g.EaveHeight = eaveHeight(nodes, g.BBox)
	g.MeanRoofHeight = meanRoofHeight(nodes, g.EaveHeight)
	g.RoofSlopeDeg = roofSlope(g.BBox.MaxZ, g.EaveHeight, g.Width)

	positions := columnPositions(nodes, members, g)
	g.FrameCount = len(positions)
	g.BaySpacings = spacings(positions)
	g.RegularBays = regular(g.BaySpacings)

	return g
}

func boundingBox(nodes []model.Node) model.BoundingBox {
	b := model.BoundingBox{
		MinX: nodes[0].X, MaxX: nodes[0].X,
		MinY: nodes[0].Y, MaxY: nodes[0].Y,
		MinZ: nodes[0].Z, MaxZ: nodes[0].Z,
	}
	for _, n := range nodes[1:] {
		b.MinX = math.Min(b.MinX, n.X)
		b.MaxX = math.Max(b.MaxX, n.X)
		b.MinY = math.Min(b.MinY, n.Y)
		b.MaxY = math.Max(b.MaxY, n.Y)
		b.MinZ = math.Min(b.MinZ, n.Z)
		b.MaxZ = math.Max(b.MaxZ, n.Z)
	}
	return b
}

// eaveHeight is the most frequent non-minimum elevation: most wall-top
// connections share one elevation, so the mode above the ground plane
// is where the walls meet the roof. Elevations are bucketed to 1% of
// the height range so float jitter does not split the population.
func eaveHeight(nodes []model.Node, b model.BoundingBox) float64 {
	zRange := b.MaxZ - b.MinZ
	if zRange <= 0 {
		return b.MaxZ
	}
	step := zRange / 100

	counts := make(map[int]int)
	sums := make(map[int]float64)
	for _, n := range nodes {
		bucket := int(math.Round((n.Z - b.MinZ) / step))
		if bucket == 0 {
			continue // ground plane
		}
		counts[bucket]++
		sums[bucket] += n.Z
	}
	if len(counts) == 0 {
		return b.MaxZ
	}

	best, bestCount := 0, 0
	for bucket, c := range counts {
		if c > bestCount || (c == bestCount && bucket > best) {
			best, bestCount = bucket, c
		}
	}
	return sums[best] / float64(counts[best])
}

func meanRoofHeight(nodes []model.Node, eave float64) float64 {
	var sum float64
	var n int
	for _, node := range nodes {
		if node.Z >= eave-1e-9 {
			sum += node.Z
			n++
		}
	}
	if n == 0 {
		return eave
	}
	return sum / float64(n)
}

// roofSlope is atan(ridge−eave / halfSpan) in degrees, clamped to the
// [0, maxRoofSlopeDeg] sanity band. Out-of-band values mean the eave
// inference went wrong, so a flat roof is reported instead.
func roofSlope(ridge, eave, width float64) float64 {
	halfSpan := width / 2
	rise := ridge - eave
	if halfSpan <= 0 || rise <= 0 {
		return 0
	}
	deg := math.Atan(rise/halfSpan) * 180 / math.Pi
	if deg < 0 || deg > maxRoofSlopeDeg {
		return 0
	}
	return deg
}

// columnPositions returns the distinct positions of column-like members
// along the building's longitudinal axis. Tagged columns are preferred;
// untagged members qualify by orientation.
func columnPositions(nodes []model.Node, members []model.Member, g model.Geometry) []float64 {
	byID := make(map[string]model.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	alongX := g.Length >= g.Width
	extent := g.Length
	if !alongX {
		extent = g.Width
	}
	if extent <= 0 {
		return nil
	}
	tolerance := extent / 100

	var positions []float64
	for _, m := range members {
		start, okS := byID[m.StartNodeID]
		end, okE := byID[m.EndNodeID]
		if !okS || !okE {
			continue
		}
		if m.Tag != model.TagUnassigned {
			if !m.Tag.IsColumn() {
				continue
			}
		} else if angleFromHorizontal(start, end) <= verticalAngleDeg {
			continue
		}

		pos := (start.X + end.X) / 2
		if !alongX {
			pos = (start.Y + end.Y) / 2
		}
		positions = append(positions, pos)
	}

	sort.Float64s(positions)
	var distinct []float64
	for _, p := range positions {
		if len(distinct) == 0 || p-distinct[len(distinct)-1] > tolerance {
			distinct = append(distinct, p)
		}
	}
	return distinct
}

func spacings(positions []float64) []float64 {
	if len(positions) < 2 {
		return nil
	}
	out := make([]float64, 0, len(positions)-1)
	for i := 1; i < len(positions); i++ {
		out = append(out, positions[i]-positions[i-1])
	}
	return out
}

// regular reports whether the maximum deviation from the mean spacing
// stays under the tolerance fraction of the mean.
func regular(spacings []float64) bool {
	if len(spacings) == 0 {
		return false
	}
	var mean float64
	for _, s := range spacings {
		mean += s
	}
	mean /= float64(len(spacings))
	if mean <= 0 {
		return false
	}
	for _, s := range spacings {
		if math.Abs(s-mean) >= baySpacingTolerance*mean {
			return false
		}
	}
	return true
}

// angleFromHorizontal returns the member's inclination in degrees:
// 0 is flat, 90 is plumb.
func angleFromHorizontal(a, b model.Node) float64 {
	dx, dy, dz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
	horizontal := math.Sqrt(dx*dx + dy*dy)
	if horizontal == 0 {
		if dz == 0 {
			return 0
		}
		return 90
	}
	return math.Atan2(math.Abs(dz), horizontal) * 180 / math.Pi
}

// AngleFromHorizontal is the shared orientation primitive used by the
// tagger and validator as well.
func AngleFromHorizontal(a, b model.Node) float64 {
	return angleFromHorizontal(a, b)
}

// Attach recomputes and stores the geometry on the model.
func Attach(m *model.Model) *model.Geometry {
	g := Derive(m.Nodes, m.Members)
	g.UnitsInferred = m.Units.Inferred
	m.Geometry = &g
	return m.Geometry
}
