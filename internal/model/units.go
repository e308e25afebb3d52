package model

// LengthUnit is the declared or inferred length unit of a source file.
type LengthUnit string

const (
	LengthMeter      LengthUnit = "M"
	LengthMillimeter LengthUnit = "MM"
	LengthFoot       LengthUnit = "FT"
	LengthInch       LengthUnit = "IN"
)

// ForceUnit is the declared force unit of a source file.
type ForceUnit string

const (
	ForceNewton     ForceUnit = "N"
	ForceKiloNewton ForceUnit = "KN"
	ForcePound      ForceUnit = "LB"
	ForceKip        ForceUnit = "KIP"
)

// UnitBase is the coarse metric/imperial flag.
type UnitBase string

const (
	BaseMetric   UnitBase = "METRIC"
	BaseImperial UnitBase = "IMPERIAL"
)

// UnitSystem is set once during parsing and never changes afterwards.
// Coordinates are stored in these units; no internal conversion happens.
type UnitSystem struct {
	Length      LengthUnit `json:"length"`
	Force       ForceUnit  `json:"force"`
	Mass        string     `json:"mass"`
	Temperature string     `json:"temperature"`
	Base        UnitBase   `json:"base"`

	// Inferred is true when no declaration was found and the magnitude
	// heuristic picked the system. Best-effort only.
	Inferred bool `json:"inferred,omitempty"`
}

// DefaultUnits is the metric fallback applied before any declaration or
// heuristic runs.
func DefaultUnits() UnitSystem {
	return UnitSystem{
		Length:      LengthMeter,
		Force:       ForceKiloNewton,
		Mass:        "KG",
		Temperature: "C",
		Base:        BaseMetric,
	}
}

// ImperialUnits is the system applied by the magnitude heuristic.
func ImperialUnits() UnitSystem {
	return UnitSystem{
		Length:      LengthFoot,
		Force:       ForceKip,
		Mass:        "LB",
		Temperature: "F",
		Base:        BaseImperial,
	}
}

// WithDerived fills mass/temperature/base from the length unit so a
// declaration only has to name length and force.
func (u UnitSystem) WithDerived() UnitSystem {
	switch u.Length {
	case LengthFoot, LengthInch:
		u.Base = BaseImperial
		u.Mass = "LB"
		u.Temperature = "F"
	default:
		u.Base = BaseMetric
		u.Mass = "KG"
		u.Temperature = "C"
	}
	return u
}
