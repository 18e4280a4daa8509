package visibility

import "strings"

// Hierarchy maps canonical level names to place names, e.g.
// {"planet": "Earth", "country": "Norway", "city": "Oslo"}. Built only via
// BuildHierarchy, which guarantees the planet key is always populated.
type Hierarchy map[string]string

// PlanetFallback is the universal coarsest value used when the geocoder
// supplies nothing; a view is never empty.
const PlanetFallback = "Earth"

// levelAliases maps heterogeneous geocoder vocabulary onto the canonical
// ladder. Within a level, earlier aliases win.
var levelAliases = map[Level][]string{
	Planet:       {"planet"},
	Continent:    {"continent"},
	Country:      {"country", "nation"},
	State:        {"state", "province", "region", "county"},
	City:         {"city", "town", "municipality", "village", "hamlet"},
	Neighborhood: {"neighborhood", "neighbourhood", "suburb", "city_district", "district", "quarter"},
	Street:       {"street", "road", "pedestrian"},
	Address:      {"address", "house_number", "house_name"},
}

// BuildHierarchy canonicalizes raw geocoder fields onto the fixed level set.
// Keys are matched case-insensitively; empty values are ignored. The planet
// key is always present, falling back to PlanetFallback for empty input.
func BuildHierarchy(raw map[string]string) Hierarchy {
	norm := make(map[string]string, len(raw))
	for k, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		norm[strings.ToLower(strings.TrimSpace(k))] = v
	}

	h := make(Hierarchy, len(levelAliases))
	for _, l := range Levels() {
		for _, alias := range levelAliases[l] {
			if v, ok := norm[alias]; ok {
				h[l.String()] = v
				break
			}
		}
	}
	if _, ok := h[Planet.String()]; !ok {
		h[Planet.String()] = PlanetFallback
	}
	return h
}

// Filter returns the subset of h at or coarser than granted. The result is
// always a subset of h.
func Filter(h Hierarchy, granted Level) Hierarchy {
	if granted < Planet {
		granted = Planet
	}
	out := make(Hierarchy, len(h))
	for _, l := range Levels() {
		if granted.Coarser(l) {
			break
		}
		if v, ok := h[l.String()]; ok {
			out[l.String()] = v
		}
	}
	return out
}

// FilterByName is Filter with a wire-form level, failing closed to the
// coarsest view on any unrecognized name.
func FilterByName(h Hierarchy, granted string) Hierarchy {
	return Filter(h, LevelOrCoarsest(granted))
}

// MostSpecific returns the finest populated level and its value, for display.
// ok is false when h is empty.
func MostSpecific(h Hierarchy) (Level, string, bool) {
	for l := Address; l >= Planet; l-- {
		if v, ok := h[l.String()]; ok {
			return l, v, true
		}
	}
	return Planet, "", false
}
