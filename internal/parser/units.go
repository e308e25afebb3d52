package parser

import (
	"strings"

	"framesight/internal/model"
)

var lengthAliases = map[string]model.LengthUnit{
	"M": model.LengthMeter, "METER": model.LengthMeter, "METERS": model.LengthMeter,
	"METRE": model.LengthMeter, "METRES": model.LengthMeter,
	"MM": model.LengthMillimeter, "MMS": model.LengthMillimeter,
	"MILLIMETER": model.LengthMillimeter, "MILLIMETERS": model.LengthMillimeter,
	"FT": model.LengthFoot, "FEET": model.LengthFoot, "FOOT": model.LengthFoot,
	"IN": model.LengthInch, "INCH": model.LengthInch, "INCHES": model.LengthInch,
}

var forceAliases = map[string]model.ForceUnit{
	"N": model.ForceNewton, "NEWTON": model.ForceNewton,
	"KN": model.ForceKiloNewton,
	"LB": model.ForcePound, "LBS": model.ForcePound,
	"POUND": model.ForcePound, "POUNDS": model.ForcePound,
	"KIP": model.ForceKip, "KIPS": model.ForceKip,
}

// scanUnits looks for an explicit unit declaration anywhere in the file.
// Both vocabularies are accepted: `UNIT METER KN` style lines and
// `UNITS=Kip_ft_F` / `UNITS KN_m_C` tokens. The boolean reports whether
// a declaration was found; without one the caller may apply the
// magnitude heuristic.
func scanUnits(lines []string) (model.UnitSystem, bool) {
	units := model.DefaultUnits()
	found := false

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || isComment(line) {
			continue
		}
		upper := strings.ToUpper(line)

		var payload string
		switch {
		case strings.HasPrefix(upper, "UNITS"):
			payload = upper[len("UNITS"):]
		case strings.HasPrefix(upper, "UNIT "):
			payload = upper[len("UNIT"):]
		default:
			if kv := parseKeyValues(line); kv != nil {
				payload = strings.ToUpper(kv["UNITS"])
			}
		}
		if payload == "" {
			continue
		}

		for _, tok := range tokenizeUnits(payload) {
			if lu, ok := lengthAliases[tok]; ok {
				units.Length = lu
				found = true
			}
			if fu, ok := forceAliases[tok]; ok {
				units.Force = fu
				found = true
			}
		}
		if found {
			break
		}
	}

	if found {
		units = units.WithDerived()
		// keep length/force pairs coherent when only one was declared
		if units.Base == model.BaseImperial && units.Force == model.ForceKiloNewton {
			units.Force = model.ForceKip
		}
		if units.Base == model.BaseMetric && (units.Force == model.ForceKip || units.Force == model.ForcePound) {
			units.Length = model.LengthFoot
			units = units.WithDerived()
		}
	}

	return units, found
}

func tokenizeUnits(payload string) []string {
	return strings.FieldsFunc(payload, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '_' || r == '-' || r == '=' || r == ','
	})
}
