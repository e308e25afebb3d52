package model

import (
	"encoding/json"
	"fmt"
)

// BuildingType is the closed taxonomy of overall structural forms. A
// model carries exactly one at a time; replacing it invalidates every
// member tag and requires a re-tag.
type BuildingType int

const (
	BuildingUnknown BuildingType = iota
	SingleGableHangar
	MultiGableHangar
	TrussSingleGable
	TrussDoubleGable
	MonoSlopeHangar
	MonoSlopeBuilding
	CarShedCanopy
	CantileverRoof
	SignageBillboard
	StandingWall
	ElevatorShaft
	SymmetricMultiStory
	ComplexMultiStory
	TemporaryStructure
	IndustrialWarehouse
)

var buildingTypeNames = map[BuildingType]string{
	BuildingUnknown:     "UNKNOWN",
	SingleGableHangar:   "SINGLE_GABLE_HANGAR",
	MultiGableHangar:    "MULTI_GABLE_HANGAR",
	TrussSingleGable:    "TRUSS_SINGLE_GABLE",
	TrussDoubleGable:    "TRUSS_DOUBLE_GABLE",
	MonoSlopeHangar:     "MONO_SLOPE_HANGAR",
	MonoSlopeBuilding:   "MONO_SLOPE_BUILDING",
	CarShedCanopy:       "CAR_SHED_CANOPY",
	CantileverRoof:      "CANTILEVER_ROOF",
	SignageBillboard:    "SIGNAGE_BILLBOARD",
	StandingWall:        "STANDING_WALL",
	ElevatorShaft:       "ELEVATOR_SHAFT",
	SymmetricMultiStory: "SYMMETRIC_MULTI_STORY",
	ComplexMultiStory:   "COMPLEX_MULTI_STORY",
	TemporaryStructure:  "TEMPORARY_STRUCTURE",
	IndustrialWarehouse: "INDUSTRIAL_WAREHOUSE",
}

var buildingTypeValues = func() map[string]BuildingType {
	m := make(map[string]BuildingType, len(buildingTypeNames))
	for bt, name := range buildingTypeNames {
		m[name] = bt
	}
	return m
}()

func (b BuildingType) String() string {
	if name, ok := buildingTypeNames[b]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseBuildingType maps a wire name to its BuildingType. Unknown names
// return an error so remote taxonomy drift is caught, not absorbed.
func ParseBuildingType(s string) (BuildingType, error) {
	if bt, ok := buildingTypeValues[s]; ok {
		return bt, nil
	}
	return BuildingUnknown, fmt.Errorf("unknown building type %q", s)
}

// BuildingTypes lists every known category, excluding BuildingUnknown.
func BuildingTypes() []BuildingType {
	out := make([]BuildingType, 0, len(buildingTypeNames)-1)
	for bt := SingleGableHangar; bt <= IndustrialWarehouse; bt++ {
		out = append(out, bt)
	}
	return out
}

// IsHangar reports whether the type belongs to the hangar/gable family.
func (b BuildingType) IsHangar() bool {
	switch b {
	case SingleGableHangar, MultiGableHangar, TrussSingleGable,
		TrussDoubleGable, MonoSlopeHangar, IndustrialWarehouse:
		return true
	}
	return false
}

// IsTruss reports whether the roof system is truss-framed.
func (b BuildingType) IsTruss() bool {
	return b == TrussSingleGable || b == TrussDoubleGable
}

// IsCanopy reports whether the type is an open canopy form.
func (b BuildingType) IsCanopy() bool {
	return b == CarShedCanopy || b == CantileverRoof
}

// IsMultiStory reports whether the type is a stacked-floor form.
func (b BuildingType) IsMultiStory() bool {
	return b == SymmetricMultiStory || b == ComplexMultiStory || b == ElevatorShaft
}

func (b BuildingType) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *BuildingType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" || s == "UNKNOWN" {
		*b = BuildingUnknown
		return nil
	}
	bt, err := ParseBuildingType(s)
	if err != nil {
		return err
	}
	*b = bt
	return nil
}
