// Package model defines the canonical structural-model types shared by
// the parser, geometry deriver, classifier, tagger, and learning tracker.
package model

import (
	"time"
)

// Node is a 3D point in the structural model. Coordinates stay in the
// units the source file used; display conversion happens elsewhere.
type Node struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
}

// Member is a line element between two nodes. Tag is TagUnassigned
// until the tagger runs.
type Member struct {
	ID          string    `json:"id"`
	StartNodeID string    `json:"startNodeId"`
	EndNodeID   string    `json:"endNodeId"`
	TypeHint    string    `json:"type,omitempty"`
	Tag         MemberTag `json:"tag,omitempty"`
	Section     string    `json:"section,omitempty"`
}

// DefaultSection is assigned when the source file carries no
// section/material reference for a member.
const DefaultSection = "UNASSIGNED"

// Dialect identifies the source text format a model was parsed from.
type Dialect int

const (
	DialectUnknown Dialect = iota
	DialectSTAAD           // section-table format (.std)
	DialectSAP2000         // key=value row format (.s2k)
)

func (d Dialect) String() string {
	switch d {
	case DialectSTAAD:
		return "STAAD"
	case DialectSAP2000:
		return "SAP2000"
	default:
		return "UNKNOWN"
	}
}

// Model is one parsed structure. Nodes and Members are immutable after
// parsing; Geometry is recomputed, never edited.
type Model struct {
	ID         string     `json:"id"`
	Name       string     `json:"name,omitempty"`
	SourceFile string     `json:"sourceFile,omitempty"`
	Dialect    Dialect    `json:"-"`
	Nodes      []Node     `json:"nodes"`
	Members    []Member   `json:"members"`
	Units      UnitSystem `json:"units"`
	Geometry   *Geometry  `json:"geometry,omitempty"`

	nodeIndex map[string]*Node
}

// NodeByID returns the node with the given id, or nil. The index is
// built lazily and is safe because nodes never change after parse.
func (m *Model) NodeByID(id string) *Node {
	if m.nodeIndex == nil {
		m.nodeIndex = make(map[string]*Node, len(m.Nodes))
		for i := range m.Nodes {
			m.nodeIndex[m.Nodes[i].ID] = &m.Nodes[i]
		}
	}
	return m.nodeIndex[id]
}

// MemberByID returns the member with the given id, or nil.
func (m *Model) MemberByID(id string) *Member {
	for i := range m.Members {
		if m.Members[i].ID == id {
			return &m.Members[i]
		}
	}
	return nil
}

// BoundingBox is the axis-aligned extent of all nodes.
type BoundingBox struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

// Geometry holds building-level metrics derived from the node/member
// graph. All values are in the model's original units.
type Geometry struct {
	Length         float64     `json:"buildingLength"`
	Width          float64     `json:"buildingWidth"`
	Height         float64     `json:"totalHeight"`
	EaveHeight     float64     `json:"eaveHeight"`
	MeanRoofHeight float64     `json:"meanRoofHeight"`
	RoofSlopeDeg   float64     `json:"roofSlope"`
	FrameCount     int         `json:"frameCount"`
	BaySpacings    []float64   `json:"baySpacings"`
	RegularBays    bool        `json:"regularBays"`
	Center         [3]float64  `json:"center"`
	BBox           BoundingBox `json:"-"`

	// UnitsInferred flags that the unit system behind these numbers was
	// guessed from coordinate magnitude rather than declared.
	UnitsInferred bool `json:"unitsInferred,omitempty"`
}

// ClassificationSource records which path produced a classification.
type ClassificationSource string

const (
	SourceRemote    ClassificationSource = "REMOTE"
	SourceRuleBased ClassificationSource = "RULE_BASED"
	SourceMerged    ClassificationSource = "MERGED"
	SourceOverride  ClassificationSource = "OVERRIDE"
)

// AlternativeType is a runner-up classification candidate.
type AlternativeType struct {
	Type       BuildingType `json:"buildingType"`
	Confidence float64      `json:"confidence"`
}

// ClassificationResult is an immutable snapshot; a later run supersedes
// it rather than mutating it.
type ClassificationResult struct {
	PredictionID  string               `json:"predictionId"`
	SuggestedType BuildingType         `json:"buildingType"`
	Confidence    float64              `json:"confidence"`
	Reasoning     []string             `json:"reasoning"`
	Source        ClassificationSource `json:"source"`
	Alternatives  []AlternativeType    `json:"alternativeTypes,omitempty"`
	At            time.Time            `json:"at"`
}

// CorrectionKind distinguishes what a user correction amends.
type CorrectionKind string

const (
	CorrectionBuildingType CorrectionKind = "BUILDING_TYPE"
	CorrectionMemberTag    CorrectionKind = "MEMBER_TAG"
)

// Correction is one user-supplied amendment to a computed result.
// Corrections are append-only: they accumulate into the learning ledger
// and are never deleted.
type Correction struct {
	ID                 string         `json:"id"`
	PredictionID       string         `json:"predictionId,omitempty"`
	Kind               CorrectionKind `json:"kind"`
	SubjectID          string         `json:"subjectId"`
	PreviousValue      string         `json:"previousValue"`
	NewValue           string         `json:"newValue"`
	PreviousConfidence float64        `json:"confidenceOfPrevious"`
	Reasoning          string         `json:"reasoning,omitempty"`
	At                 time.Time      `json:"timestamp"`
	RemoteAck          bool           `json:"remoteAck"`
}
