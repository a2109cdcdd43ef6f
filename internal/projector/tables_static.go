package projector

import "github.com/metno/gobufr/internal/descriptor"

// cfEntry is a (CF standard_name, unit) pair for a Table B element,
// looked up independently of Table B's own unit text (a static map always
// wins over the dynamic table, mirroring the source's cf_names lookup
// taking precedence over the decoded Meta.Unit).
type cfEntry struct {
	Name string
	Unit string
}

// cfNames is ported verbatim from original_source's ESOHBufr.h cf_names
// map (descriptor decimal form -> (CF standard_name, unit)).
var cfNames = map[descriptor.Id]cfEntry{
	descriptor.FromDecimal(10004): {"air_pressure", "Pa"},
	descriptor.FromDecimal(10051): {"air_pressure_at_mean_sea_level", "Pa"},

	descriptor.FromDecimal(11001): {"wind_from_direction", "degree"},
	descriptor.FromDecimal(11002): {"wind_speed", "m s-1"},

	descriptor.FromDecimal(12001): {"air_temperature", "K"},
	descriptor.FromDecimal(12004): {"air_temperature", "K"},
	descriptor.FromDecimal(12101): {"air_temperature", "K"},
	descriptor.FromDecimal(12104): {"air_temperature", "K"},
	descriptor.FromDecimal(12003): {"dew_point_temperature", "K"},
	descriptor.FromDecimal(12006): {"dew_point_temperature", "K"},
	descriptor.FromDecimal(12103): {"dew_point_temperature", "K"},
	descriptor.FromDecimal(12106): {"dew_point_temperature", "K"},

	descriptor.FromDecimal(13003): {"relative_humidity", "1"},

	descriptor.FromDecimal(13011): {"precipitation_amount", "kg m-2"},
	descriptor.FromDecimal(13023): {"precipitation_amount", "kg m-2"},

	descriptor.FromDecimal(20001): {"visibility_in_air", "m"},

	descriptor.FromDecimal(14002): {"integral_wrt_time_of_surface_downwelling_longwave_flux_in_air", "W s m-2"},
	descriptor.FromDecimal(14004): {"integral_wrt_time_of_surface_downwelling_shortwave_flux_in_air", "W s m-2"},
	descriptor.FromDecimal(14012): {"integral_wrt_time_of_surface_net_downward_longwave_flux", "W s m-2"},
	descriptor.FromDecimal(14013): {"integral_wrt_time_of_surface_net_downward_shortwave_flux", "W s m-2"},

	descriptor.FromDecimal(22042): {"sea_water_temperature", "K"},
	descriptor.FromDecimal(22043): {"sea_water_temperature", "K"},
	descriptor.FromDecimal(22045): {"sea_water_temperature", "K"},
}

// cfNameFor looks up id's static CF name/unit, falling back to Table B's
// own name/unit when id has no static entry.
func cfNameFor(id descriptor.Id, fallbackName, fallbackUnit string) (name, unit string) {
	if e, ok := cfNames[id]; ok {
		return e.Name, e.Unit
	}
	return fallbackName, fallbackUnit
}

// defaultShadowWigos is the source's default shadow-WIGOS prefix template
// ("0-578-2024-"), used when a platform has no usable WIGOS local id and
// no configured override.
const defaultShadowWigos = "0-578-2024-"

// replChars is the source's platform_name character-replacement list
// (repl_chars = {{'-','_'}}).
var replChars = map[rune]rune{'-': '_'}

func applyReplChars(s string) string {
	out := []rune(s)
	for i, r := range out {
		if repl, ok := replChars[r]; ok {
			out[i] = repl
		}
	}
	return string(out)
}

// countryCodes maps a BUFR Common Code Table 0 01 101 state/territory
// identifier to an ISO numeric country code, used to set a synthesized
// WIGOS issuer (X=1, Y=101 dispatch). The source's actual table
// (bufrToIsocc) is not present in the retrieved original_source pack (see
// DESIGN.md's "Unresolved grounding gap" entry) — this is a documented,
// non-verbatim placeholder carrying a representative subset of real WMO
// state/territory identifiers, preserving the exact fallback behavior
// (unknown code -> Warn + issuer 0).
var countryCodes = map[int]int{
	1:  840, // Alabama -> United States of America
	2:  840, // Alaska -> United States of America
	60: 36,  // South Australia -> Australia
	61: 36,  // Western Australia -> Australia
	76: 124, // Alberta -> Canada
}

func lookupCountryCode(bufrStateID int) (isoNumeric int, ok bool) {
	v, ok := countryCodes[bufrStateID]
	return v, ok
}
