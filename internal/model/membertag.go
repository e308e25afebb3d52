package model

import (
	"encoding/json"
	"fmt"
)

// MemberTag is the closed taxonomy of per-member structural roles.
type MemberTag int

const (
	TagUnassigned MemberTag = iota
	TagMainFrameColumn
	TagEndWallColumn
	TagRafter
	TagPurlin
	TagFloorBeam
	TagTieBeam
	TagBrace
	TagTrussChord
	TagTrussWeb
	TagCraneBeam
	TagCraneBracket
	TagCantileverBeam
	TagCanopyBeam
	TagFoundationTie
	TagFascia
	TagParapet
)

var memberTagNames = map[MemberTag]string{
	TagUnassigned:      "UNASSIGNED",
	TagMainFrameColumn: "MAIN_FRAME_COLUMN",
	TagEndWallColumn:   "END_WALL_COLUMN",
	TagRafter:          "RAFTER",
	TagPurlin:          "PURLIN",
	TagFloorBeam:       "FLOOR_BEAM",
	TagTieBeam:         "TIE_BEAM",
	TagBrace:           "BRACE",
	TagTrussChord:      "TRUSS_CHORD",
	TagTrussWeb:        "TRUSS_WEB",
	TagCraneBeam:       "CRANE_BEAM",
	TagCraneBracket:    "CRANE_BRACKET",
	TagCantileverBeam:  "CANTILEVER_BEAM",
	TagCanopyBeam:      "CANOPY_BEAM",
	TagFoundationTie:   "FOUNDATION_TIE",
	TagFascia:          "FASCIA",
	TagParapet:         "PARAPET",
}

var memberTagValues = func() map[string]MemberTag {
	m := make(map[string]MemberTag, len(memberTagNames))
	for t, name := range memberTagNames {
		m[name] = t
	}
	return m
}()

func (t MemberTag) String() string {
	if name, ok := memberTagNames[t]; ok {
		return name
	}
	return "UNASSIGNED"
}

// ParseMemberTag maps a wire name to its MemberTag.
func ParseMemberTag(s string) (MemberTag, error) {
	if t, ok := memberTagValues[s]; ok {
		return t, nil
	}
	return TagUnassigned, fmt.Errorf("unknown member tag %q", s)
}

// IsColumn reports whether the tag is a vertical load-path role.
func (t MemberTag) IsColumn() bool {
	return t == TagMainFrameColumn || t == TagEndWallColumn
}

// IsRoof reports whether the tag lives at roof level.
func (t MemberTag) IsRoof() bool {
	switch t {
	case TagRafter, TagPurlin, TagTrussChord, TagTrussWeb,
		TagCanopyBeam, TagCantileverBeam, TagFascia:
		return true
	}
	return false
}

// IsPrimary reports whether the tag is a primary horizontal/sloped
// load-carrying role (the validator's "horizontal/primary" category).
func (t MemberTag) IsPrimary() bool {
	switch t {
	case TagRafter, TagFloorBeam, TagTieBeam, TagTrussChord,
		TagCraneBeam, TagCantileverBeam, TagCanopyBeam:
		return true
	}
	return false
}

// IsBracing reports whether the tag is a lateral-stability role.
func (t MemberTag) IsBracing() bool {
	return t == TagBrace || t == TagTrussWeb
}

func (t MemberTag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *MemberTag) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" || s == "UNASSIGNED" {
		*t = TagUnassigned
		return nil
	}
	tag, err := ParseMemberTag(s)
	if err != nil {
		return err
	}
	*t = tag
	return nil
}
