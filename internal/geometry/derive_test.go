package geometry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"framesight/internal/model"
)

// gableFrames builds a gabled portal building: one frame per X position,
// 20 wide, 6 to the eave, 8 at the ridge.
func gableFrames(xs ...float64) ([]model.Node, []model.Member) {
	var nodes []model.Node
	var members []model.Member
	n := 0
	node := func(x, y, z float64) string {
		n++
		id := fmt.Sprintf("%d", n)
		nodes = append(nodes, model.Node{ID: id, X: x, Y: y, Z: z})
		return id
	}
	mem := func(a, b string) {
		members = append(members, model.Member{
			ID:          fmt.Sprintf("M%d", len(members)+1),
			StartNodeID: a,
			EndNodeID:   b,
		})
	}

	for _, x := range xs {
		base1 := node(x, 0, 0)
		eave1 := node(x, 0, 6)
		ridge := node(x, 10, 8)
		eave2 := node(x, 20, 6)
		base2 := node(x, 20, 0)
		mem(base1, eave1)
		mem(eave1, ridge)
		mem(ridge, eave2)
		mem(eave2, base2)
	}
	return nodes, members
}

func TestDeriveGableGeometry(t *testing.T) {
	nodes, members := gableFrames(0, 30, 60, 90)
	g := Derive(nodes, members)

	assert.InDelta(t, 90, g.Length, 1e-9)
	assert.InDelta(t, 20, g.Width, 1e-9)
	assert.InDelta(t, 8, g.Height, 1e-9)

	// the eave is the mode of the non-minimum elevations: 8 nodes at 6,
	// only 4 at the ridge
	assert.InDelta(t, 6, g.EaveHeight, 1e-9)

	// atan(2 / 10) ≈ 11.3°
	assert.InDelta(t, 11.31, g.RoofSlopeDeg, 0.05)

	assert.Equal(t, 4, g.FrameCount)
	require.Len(t, g.BaySpacings, 3)
	for _, s := range g.BaySpacings {
		assert.InDelta(t, 30, s, 1e-9)
	}
	assert.True(t, g.RegularBays)
}

func TestDeriveIrregularBays(t *testing.T) {
	nodes, members := gableFrames(0, 30, 75, 85)
	g := Derive(nodes, members)

	assert.Equal(t, 4, g.FrameCount)
	assert.Equal(t, []float64{30, 45, 10}, g.BaySpacings)
	assert.False(t, g.RegularBays)
}

func TestDeriveEmptyModel(t *testing.T) {
	g := Derive(nil, nil)
	assert.Zero(t, g.Height)
	assert.Zero(t, g.FrameCount)
	assert.False(t, g.RegularBays)
}

func TestEaveHeightToleratesJitter(t *testing.T) {
	// float noise at the wall tops must not split the mode
	nodes := []model.Node{
		{ID: "1", Z: 0}, {ID: "2", Z: 0},
		{ID: "3", X: 0, Z: 6.0}, {ID: "4", X: 10, Z: 6.02},
		{ID: "5", X: 20, Z: 5.98}, {ID: "6", X: 30, Z: 6.01},
		{ID: "7", X: 15, Z: 8},
	}
	g := Derive(nodes, nil)
	assert.InDelta(t, 6.0, g.EaveHeight, 0.05)
}

func TestRoofSlopeClampsToFlat(t *testing.T) {
	// rise equal to the half span is 45°, fine; rise far beyond the
	// sanity bound reports flat
	assert.InDelta(t, 45, roofSlope(16, 6, 20), 0.01)
	assert.Zero(t, roofSlope(100, 1, 2))
	assert.Zero(t, roofSlope(6, 6, 20))
	assert.Zero(t, roofSlope(8, 6, 0))
}

func TestAngleFromHorizontal(t *testing.T) {
	flat := AngleFromHorizontal(model.Node{}, model.Node{X: 5})
	plumb := AngleFromHorizontal(model.Node{}, model.Node{Z: 5})
	diag := AngleFromHorizontal(model.Node{}, model.Node{X: 3, Z: 3})

	assert.Zero(t, flat)
	assert.InDelta(t, 90, plumb, 1e-9)
	assert.InDelta(t, 45, diag, 1e-9)
}

func TestAttachStoresGeometryAndUnitsFlag(t *testing.T) {
	nodes, members := gableFrames(0, 30)
	m := &model.Model{Nodes: nodes, Members: members, Units: model.ImperialUnits()}
	m.Units.Inferred = true

	g := Attach(m)
	require.NotNil(t, m.Geometry)
	assert.Same(t, g, m.Geometry)
	assert.True(t, g.UnitsInferred)
}
