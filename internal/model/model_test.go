package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBuildingTypeRejectsUnknown(t *testing.T) {
	bt, err := ParseBuildingType("TRUSS_SINGLE_GABLE")
	require.NoError(t, err)
	assert.Equal(t, TrussSingleGable, bt)

	_, err = ParseBuildingType("FLOATING_CASTLE")
	assert.Error(t, err)
}

func TestBuildingTypeWireNames(t *testing.T) {
	// every known type round-trips through its wire name
	for _, bt := range BuildingTypes() {
		parsed, err := ParseBuildingType(bt.String())
		require.NoError(t, err, bt.String())
		assert.Equal(t, bt, parsed)
	}
	assert.Len(t, BuildingTypes(), 15)
}

func TestClassificationResultJSONFieldNames(t *testing.T) {
	res := ClassificationResult{
		PredictionID:  "p-1",
		SuggestedType: IndustrialWarehouse,
		Confidence:    0.8,
		Source:        SourceRuleBased,
	}
	data, err := json.Marshal(res)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, "p-1", wire["predictionId"])
	assert.Equal(t, "INDUSTRIAL_WAREHOUSE", wire["buildingType"])
	assert.Equal(t, "RULE_BASED", wire["source"])
}

func TestNodeByID(t *testing.T) {
	m := &Model{Nodes: []Node{{ID: "1", X: 1}, {ID: "2", X: 2}}}
	require.NotNil(t, m.NodeByID("2"))
	assert.Equal(t, 2.0, m.NodeByID("2").X)
	assert.Nil(t, m.NodeByID("99"))
}

func TestMemberTagCategories(t *testing.T) {
	assert.True(t, TagMainFrameColumn.IsColumn())
	assert.True(t, TagEndWallColumn.IsColumn())
	assert.False(t, TagRafter.IsColumn())

	assert.True(t, TagRafter.IsRoof())
	assert.True(t, TagTrussWeb.IsBracing())
	assert.True(t, TagCraneBeam.IsPrimary())
	assert.False(t, TagBrace.IsPrimary())
}
