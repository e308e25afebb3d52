package tagger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"framesight/internal/learning"
	"framesight/internal/model"
)

func testGeometry() model.Geometry {
	return model.Geometry{
		Length:       40,
		Width:        20,
		Height:       10,
		EaveHeight:   6,
		RoofSlopeDeg: 12,
		BBox:         model.BoundingBox{MaxX: 40, MaxY: 20, MaxZ: 10},
	}
}

func TestBaseTagLookup(t *testing.T) {
	g := testGeometry()

	tests := []struct {
		name string
		view memberView
		bt   model.BuildingType
		want model.MemberTag
	}{
		{"mid column", memberView{angle: 90, longPos: 20}, model.SingleGableHangar, model.TagMainFrameColumn},
		{"end column", memberView{angle: 90, longPos: 1}, model.SingleGableHangar, model.TagEndWallColumn},
		{"far end column", memberView{angle: 90, longPos: 39}, model.SingleGableHangar, model.TagEndWallColumn},

		{"foundation tie", memberView{angle: 2, relElev: 0.1}, model.SingleGableHangar, model.TagFoundationTie},
		{"mid tie beam", memberView{angle: 2, relElev: 0.5}, model.SingleGableHangar, model.TagTieBeam},
		{"floor beam", memberView{angle: 2, relElev: 0.5}, model.SymmetricMultiStory, model.TagFloorBeam},
		{"eave tie", memberView{angle: 2, relElev: 0.7}, model.SingleGableHangar, model.TagTieBeam},

		{"roof purlin", memberView{angle: 2, relElev: 0.9}, model.SingleGableHangar, model.TagPurlin},
		{"truss chord", memberView{angle: 2, relElev: 0.9}, model.TrussSingleGable, model.TagTrussChord},
		{"canopy beam", memberView{angle: 2, relElev: 0.9}, model.CarShedCanopy, model.TagCanopyBeam},
		{"parapet", memberView{angle: 2, relElev: 0.9}, model.ComplexMultiStory, model.TagParapet},

		{"truss web", memberView{angle: 40, relElev: 0.9, meanZ: 9}, model.TrussDoubleGable, model.TagTrussWeb},
		{"rafter", memberView{angle: 25, relElev: 0.9, meanZ: 9}, model.SingleGableHangar, model.TagRafter},
		{"wall brace", memberView{angle: 45, relElev: 0.3, meanZ: 3}, model.SingleGableHangar, model.TagBrace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, conf := baseTag(tt.view, g, tt.bt)
			assert.Equal(t, tt.want, tag)
			assert.Greater(t, conf, 0.0)
		})
	}
}

// portalModel is a small gabled portal: 40 long, 20 wide, eave 6,
// ridge 8, three frames.
func portalModel() *model.Model {
	var nodes []model.Node
	var members []model.Member
	n := 0
	node := func(x, y, z float64) string {
		n++
		id := fmt.Sprintf("%d", n)
		nodes = append(nodes, model.Node{ID: id, X: x, Y: y, Z: z})
		return id
	}
	mem := func(a, b string) string {
		id := fmt.Sprintf("M%d", len(members)+1)
		members = append(members, model.Member{ID: id, StartNodeID: a, EndNodeID: b})
		return id
	}
	for _, x := range []float64{0, 20, 40} {
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
	return &model.Model{ID: "portal", Nodes: nodes, Members: members}
}

func TestApplyTagsEveryMember(t *testing.T) {
	m := portalModel()
	res := New(nil, nil).Apply(m, model.SingleGableHangar)

	require.Len(t, res.Tags, len(m.Members))
	require.Len(t, res.Confidences, len(m.Members))
	for _, mem := range m.Members {
		assert.NotEqual(t, model.TagUnassigned, mem.Tag, "member %s left untagged", mem.ID)
		assert.Equal(t, mem.Tag, res.Tags[mem.ID])
	}

	// the middle frame columns stay main-frame, the end frames are walls
	assert.Equal(t, model.TagEndWallColumn, m.MemberByID("M1").Tag)
	assert.Equal(t, model.TagMainFrameColumn, m.MemberByID("M5").Tag)
	assert.Equal(t, model.TagEndWallColumn, m.MemberByID("M9").Tag)
}

func TestApplyOverrideWins(t *testing.T) {
	tracker := learning.NewTracker(nil, 0, nil)
	tracker.SubmitCorrection(context.Background(), model.Correction{
		Kind:      model.CorrectionMemberTag,
		SubjectID: "M2",
		NewValue:  "CRANE_BEAM",
	})

	m := portalModel()
	res := New(tracker, nil).Apply(m, model.SingleGableHangar)

	assert.Equal(t, model.TagCraneBeam, m.MemberByID("M2").Tag)
	assert.Equal(t, 1.0, res.Confidences["M2"])
	assert.Equal(t, 1, res.Overridden)
}

func TestApplyCraneBandRetag(t *testing.T) {
	m := portalModel()
	// runway beam riding at 5 of the 6 eave
	extra := []model.Node{
		{ID: "r1", X: 0, Y: 0, Z: 5},
		{ID: "r2", X: 40, Y: 0, Z: 5},
	}
	m.Nodes = append(m.Nodes, extra...)
	m.Members = append(m.Members, model.Member{ID: "RAIL", StartNodeID: "r1", EndNodeID: "r2"})

	res := New(nil, nil).Apply(m, model.IndustrialWarehouse)
	assert.Equal(t, model.TagCraneBeam, res.Tags["RAIL"])

	// the same beam is not a crane beam in a plain hangar
	m2 := portalModel()
	m2.Nodes = append(m2.Nodes, extra...)
	m2.Members = append(m2.Members, model.Member{ID: "RAIL", StartNodeID: "r1", EndNodeID: "r2"})
	res2 := New(nil, nil).Apply(m2, model.SingleGableHangar)
	assert.NotEqual(t, model.TagCraneBeam, res2.Tags["RAIL"])
}

func TestApplyPromotesLongestPurlins(t *testing.T) {
	var nodes []model.Node
	var members []model.Member
	// two columns define the height, the roof is a flat purlin field
	nodes = append(nodes,
		model.Node{ID: "b1", X: 0, Y: 0, Z: 0},
		model.Node{ID: "t1", X: 0, Y: 0, Z: 10},
		model.Node{ID: "b2", X: 50, Y: 20, Z: 0},
		model.Node{ID: "t2", X: 50, Y: 20, Z: 10},
	)
	members = append(members,
		model.Member{ID: "C1", StartNodeID: "b1", EndNodeID: "t1"},
		model.Member{ID: "C2", StartNodeID: "b2", EndNodeID: "t2"},
	)
	for i := 0; i < 10; i++ {
		a := fmt.Sprintf("p%da", i)
		b := fmt.Sprintf("p%db", i)
		length := 5.0 + float64(i) // P9 is the longest
		nodes = append(nodes,
			model.Node{ID: a, X: float64(i * 5), Y: 0, Z: 10},
			model.Node{ID: b, X: float64(i*5) + length, Y: 0, Z: 10},
		)
		members = append(members, model.Member{ID: fmt.Sprintf("P%d", i), StartNodeID: a, EndNodeID: b})
	}
	m := &model.Model{ID: "flat", Nodes: nodes, Members: members}

	res := New(nil, nil).Apply(m, model.SingleGableHangar)

	rafters := 0
	for id, tag := range res.Tags {
		if tag == model.TagRafter {
			rafters++
			assert.Contains(t, []string{"P9", "P8"}, id)
		}
	}
	assert.Equal(t, 2, rafters)
}

// leanToModel has no true verticals at all, only near-vertical legs.
func leanToModel(legs int) *model.Model {
	var nodes []model.Node
	var members []model.Member
	for i := 0; i < legs; i++ {
		x := float64(i * 10)
		lo := fmt.Sprintf("d%dl", i)
		hi := fmt.Sprintf("d%dh", i)
		nodes = append(nodes,
			model.Node{ID: lo, X: x, Y: 0, Z: 0},
			model.Node{ID: hi, X: x + 2, Y: 0, Z: 5.5}, // about 70 degrees
		)
		members = append(members, model.Member{ID: fmt.Sprintf("D%d", i), StartNodeID: lo, EndNodeID: hi})
	}
	return &model.Model{ID: "lean", Nodes: nodes, Members: members}
}

func TestApplyPromotesSteepDiagonalsWhenNoColumnsExist(t *testing.T) {
	m := leanToModel(5)
	res := New(nil, nil).Apply(m, model.SingleGableHangar)

	columns := 0
	for _, mem := range m.Members {
		if mem.Tag.IsColumn() {
			columns++
		}
	}
	// promotion caps at four; the fifth leg stays a brace
	assert.Equal(t, 4, columns)
	assert.Equal(t, 1, res.Counts[model.TagBrace])
}

func TestApplyKeepsBracesWhenColumnsExist(t *testing.T) {
	m := leanToModel(3)
	m.Nodes = append(m.Nodes,
		model.Node{ID: "a1", X: 0, Y: 10, Z: 0},
		model.Node{ID: "a2", X: 0, Y: 10, Z: 6},
		model.Node{ID: "b1", X: 40, Y: 10, Z: 0},
		model.Node{ID: "b2", X: 40, Y: 10, Z: 6},
	)
	m.Members = append(m.Members,
		model.Member{ID: "C1", StartNodeID: "a1", EndNodeID: "a2"},
		model.Member{ID: "C2", StartNodeID: "b1", EndNodeID: "b2"},
	)

	res := New(nil, nil).Apply(m, model.SingleGableHangar)

	columns := 0
	for _, mem := range m.Members {
		if mem.Tag.IsColumn() {
			columns++
		}
	}
	assert.Equal(t, 2, columns)
	for i := 0; i < 3; i++ {
		assert.Equal(t, model.TagBrace, res.Tags[fmt.Sprintf("D%d", i)])
	}
}

func TestApplyRetagReplacesPriorTags(t *testing.T) {
	tracker := learning.NewTracker(nil, 0, nil)
	tracker.SubmitCorrection(context.Background(), model.Correction{
		Kind:      model.CorrectionMemberTag,
		SubjectID: "M2",
		NewValue:  "CRANE_BEAM",
	})

	m := portalModel()
	tg := New(tracker, nil)

	first := tg.Apply(m, model.TrussSingleGable)
	assert.Equal(t, model.TagTrussChord, first.Tags["M3"])
	assert.Equal(t, model.TagCraneBeam, first.Tags["M2"])

	second := tg.Apply(m, model.SymmetricMultiStory)
	assert.Equal(t, model.TagParapet, second.Tags["M3"])
	assert.Zero(t, second.Counts[model.TagTrussChord], "truss tags must not survive a re-tag")
	assert.Equal(t, model.TagCraneBeam, second.Tags["M2"])
	assert.Equal(t, 1.0, second.Confidences["M2"])
}
