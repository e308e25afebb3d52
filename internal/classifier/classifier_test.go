package classifier

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"framesight/internal/learning"
	"framesight/internal/model"
	"framesight/internal/service"
)

// builder assembles test structures node by node.
type builder struct {
	nodes   []model.Node
	members []model.Member
	n       int
}

func (b *builder) node(x, y, z float64) string {
	b.n++
	id := fmt.Sprintf("%d", b.n)
	b.nodes = append(b.nodes, model.Node{ID: id, X: x, Y: y, Z: z})
	return id
}

func (b *builder) member(a, c string) {
	b.members = append(b.members, model.Member{
		ID:          fmt.Sprintf("M%d", len(b.members)+1),
		StartNodeID: a,
		EndNodeID:   c,
	})
}

func (b *builder) model(id string) *model.Model {
	return &model.Model{ID: id, Nodes: b.nodes, Members: b.members}
}

// gableBuilding is a 20-wide portal building with frames at the given X
// positions: 6 to the eave, 8 at the ridge.
func gableBuilding(xs ...float64) *builder {
	b := &builder{}
	for _, x := range xs {
		base1 := b.node(x, 0, 0)
		eave1 := b.node(x, 0, 6)
		ridge := b.node(x, 10, 8)
		eave2 := b.node(x, 20, 6)
		base2 := b.node(x, 20, 0)
		b.member(base1, eave1)
		b.member(eave1, ridge)
		b.member(ridge, eave2)
		b.member(eave2, base2)
	}
	return b
}

func TestCascadeGableHangar(t *testing.T) {
	m := gableBuilding(0, 30, 60, 90).model("gable")
	c := New(nil, nil, nil)

	res := c.ClassifyLocal(m)
	assert.Equal(t, model.SingleGableHangar, res.SuggestedType)
	assert.InDelta(t, 0.82, res.Confidence, 1e-9)
	assert.Equal(t, model.SourceRuleBased, res.Source)
	assert.NotEmpty(t, res.PredictionID)
	assert.NotEmpty(t, res.Reasoning)
}

func TestCascadeTrussGable(t *testing.T) {
	b := gableBuilding(0, 30, 60)
	// bottom chord and webs per frame turn the gable into a truss roof
	for _, x := range []float64{0, 30, 60} {
		a := b.node(x, 5, 6)
		c := b.node(x, 15, 6)
		ridge := ""
		for _, n := range b.nodes {
			if n.X == x && n.Y == 10 && n.Z == 8 {
				ridge = n.ID
			}
		}
		require.NotEmpty(t, ridge)
		b.member(a, c)
		b.member(a, ridge)
		b.member(c, ridge)
	}
	m := b.model("truss")

	res := New(nil, nil, nil).ClassifyLocal(m)
	assert.Equal(t, model.TrussSingleGable, res.SuggestedType)
	assert.InDelta(t, 0.85, res.Confidence, 1e-9)
}

func TestCascadeIndustrialWarehouse(t *testing.T) {
	b := gableBuilding(0, 30, 60, 90)
	// runway beams just below the eave
	var rail []string
	for _, x := range []float64{0, 30, 60, 90} {
		rail = append(rail, b.node(x, 0, 5))
	}
	for i := 0; i+1 < len(rail); i++ {
		b.member(rail[i], rail[i+1])
	}
	m := b.model("warehouse")

	res := New(nil, nil, nil).ClassifyLocal(m)
	assert.Equal(t, model.IndustrialWarehouse, res.SuggestedType)
	assert.InDelta(t, 0.80, res.Confidence, 1e-9)
}

func TestCascadeElevatorShaft(t *testing.T) {
	b := &builder{}
	var below []string
	for _, z := range []float64{0, 10, 20, 30} {
		ring := []string{
			b.node(0, 0, z), b.node(3, 0, z), b.node(3, 3, z), b.node(0, 3, z),
		}
		if z > 0 {
			for i := range ring {
				b.member(ring[i], ring[(i+1)%4])
				b.member(below[i], ring[i])
			}
		}
		below = ring
	}
	m := b.model("shaft")

	res := New(nil, nil, nil).ClassifyLocal(m)
	assert.Equal(t, model.ElevatorShaft, res.SuggestedType)
}

func TestCascadeSignageBeforeShaft(t *testing.T) {
	// a billboard is tall and narrow too; the planar footprint must win
	b := &builder{}
	p1 := b.node(0, 0, 0)
	p2 := b.node(12, 0, 0)
	t1 := b.node(0, 0, 35)
	t2 := b.node(12, 0, 35)
	t3 := b.node(0, 1, 35)
	t4 := b.node(12, 1, 35)
	b.member(p1, t1)
	b.member(p2, t2)
	b.member(t1, t2)
	b.member(t3, t4)
	b.member(t1, t3)
	b.member(t2, t4)
	m := b.model("billboard")

	res := New(nil, nil, nil).ClassifyLocal(m)
	assert.Equal(t, model.SignageBillboard, res.SuggestedType)
}

func TestCascadeSymmetricMultiStory(t *testing.T) {
	b := &builder{}
	var below []string
	for _, z := range []float64{0, 3, 6, 9} {
		level := []string{
			b.node(0, 0, z), b.node(20, 0, z), b.node(20, 15, z), b.node(0, 15, z),
		}
		if z > 0 {
			for i := range level {
				b.member(level[i], level[(i+1)%4])
				b.member(below[i], level[i])
			}
		}
		below = level
	}
	m := b.model("office")

	res := New(nil, nil, nil).ClassifyLocal(m)
	assert.Equal(t, model.SymmetricMultiStory, res.SuggestedType)
}

func TestCascadeCarShedCanopy(t *testing.T) {
	b := &builder{}
	cols := [][2]float64{{1, 1}, {19, 1}, {1, 9}, {19, 9}}
	var tops []string
	for _, c := range cols {
		base := b.node(c[0], c[1], 0)
		top := b.node(c[0], c[1], 2.4)
		b.member(base, top)
		tops = append(tops, top)
	}
	// flat roof grid over the full 20 × 10 footprint
	corners := []string{
		b.node(0, 0, 2.4), b.node(20, 0, 2.4), b.node(20, 10, 2.4), b.node(0, 10, 2.4),
	}
	for i := range corners {
		b.member(corners[i], corners[(i+1)%4])
	}
	mids := []string{
		b.node(5, 0, 2.4), b.node(10, 0, 2.4), b.node(15, 0, 2.4),
		b.node(5, 10, 2.4), b.node(10, 10, 2.4), b.node(15, 10, 2.4),
	}
	for i := 0; i < 3; i++ {
		b.member(mids[i], mids[i+3])
	}
	b.member(tops[0], tops[1])
	b.member(tops[2], tops[3])
	b.member(corners[0], tops[0])
	b.member(corners[1], tops[1])
	b.member(corners[2], tops[3])
	m := b.model("carport")

	res := New(nil, nil, nil).ClassifyLocal(m)
	assert.Equal(t, model.CarShedCanopy, res.SuggestedType)
}

func TestCascadeDefaultsWhenNothingMatches(t *testing.T) {
	// a flat mid-rise box: too tall for a canopy, too few levels for
	// multi-story, too big for a temporary structure
	b := &builder{}
	var tops []string
	for _, c := range [][2]float64{{0, 0}, {40, 0}, {0, 30}, {40, 30}, {20, 0}, {20, 30}} {
		base := b.node(c[0], c[1], 0)
		top := b.node(c[0], c[1], 10)
		b.member(base, top)
		tops = append(tops, top)
	}
	b.member(tops[0], tops[4])
	b.member(tops[4], tops[1])
	b.member(tops[1], tops[3])
	b.member(tops[3], tops[5])
	b.member(tops[5], tops[2])
	b.member(tops[2], tops[0])
	b.member(tops[4], tops[5])
	m := b.model("box")

	res := New(nil, nil, nil).ClassifyLocal(m)
	assert.Equal(t, model.SingleGableHangar, res.SuggestedType)
	assert.InDelta(t, 0.5, res.Confidence, 1e-9)
	require.NotEmpty(t, res.Reasoning)
	assert.Contains(t, res.Reasoning[0], "no geometric predicate matched")
}

// fakeService scripts the remote collaborator.
type fakeService struct {
	health     service.HealthInfo
	healthErr  error
	result     model.ClassificationResult
	resultErr  error
	classified int
}

func (f *fakeService) Health(ctx context.Context) (service.HealthInfo, error) {
	return f.health, f.healthErr
}

func (f *fakeService) ClassifyBuilding(ctx context.Context, m *model.Model) (model.ClassificationResult, error) {
	f.classified++
	return f.result, f.resultErr
}

func healthy() service.HealthInfo {
	return service.HealthInfo{Status: "healthy", ModelsLoaded: true}
}

func TestClassifyRemoteSuccess(t *testing.T) {
	svc := &fakeService{
		health: healthy(),
		result: model.ClassificationResult{
			SuggestedType: model.MonoSlopeHangar,
			Confidence:    0.93,
			Source:        model.SourceRemote,
		},
	}
	m := gableBuilding(0, 30).model("m")

	res, err := New(svc, nil, nil).Classify(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, model.MonoSlopeHangar, res.SuggestedType)
	assert.Equal(t, model.SourceRemote, res.Source)
	assert.NotEmpty(t, res.PredictionID)
	assert.Equal(t, 1, svc.classified)
}

func TestClassifyFailsWhenServiceUnhealthy(t *testing.T) {
	svc := &fakeService{health: service.HealthInfo{Status: "degraded"}}
	m := gableBuilding(0, 30).model("m")

	_, err := New(svc, nil, nil).Classify(context.Background(), m)
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrUnavailable)
	assert.Zero(t, svc.classified)
}

func TestClassifyFailsWithoutService(t *testing.T) {
	m := gableBuilding(0, 30).model("m")
	_, err := New(nil, nil, nil).Classify(context.Background(), m)
	assert.ErrorIs(t, err, service.ErrUnavailable)
}

func TestClassifySurfacesRemoteError(t *testing.T) {
	svc := &fakeService{
		health:    healthy(),
		resultErr: fmt.Errorf("%w: classify-building: boom", service.ErrUnavailable),
	}
	m := gableBuilding(0, 30).model("m")

	_, err := New(svc, nil, nil).Classify(context.Background(), m)
	assert.ErrorIs(t, err, service.ErrUnavailable)
}

func TestClassifyHonorsManualOverride(t *testing.T) {
	tracker := learning.NewTracker(nil, 0, nil)
	tracker.SubmitCorrection(context.Background(), model.Correction{
		Kind:      model.CorrectionBuildingType,
		SubjectID: "m",
		NewValue:  "ELEVATOR_SHAFT",
	})

	// the service errors on everything: the override must short-circuit
	svc := &fakeService{healthErr: errors.New("down")}
	m := gableBuilding(0, 30).model("m")

	res, err := New(svc, tracker, nil).Classify(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, model.ElevatorShaft, res.SuggestedType)
	assert.Equal(t, model.SourceOverride, res.Source)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Zero(t, svc.classified)
}

func TestClassifyLocalHonorsManualOverride(t *testing.T) {
	tracker := learning.NewTracker(nil, 0, nil)
	tracker.SubmitCorrection(context.Background(), model.Correction{
		Kind:      model.CorrectionBuildingType,
		SubjectID: "m",
		NewValue:  "STANDING_WALL",
	})
	m := gableBuilding(0, 30).model("m")

	res := New(nil, tracker, nil).ClassifyLocal(m)
	assert.Equal(t, model.StandingWall, res.SuggestedType)
	assert.Equal(t, model.SourceOverride, res.Source)
}
