package visibility

import (
	"math"
	"slices"
)

// earthRadiusMeters is the fixed mean Earth radius used by the great-circle
// distance.
const earthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Distance returns the great-circle (haversine) distance between a and b in
// meters. Distance(p, p) is exactly 0.
func Distance(a, b Point) float64 {
	if a == b {
		return 0
	}
	latA := a.Latitude * math.Pi / 180
	latB := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLon*sinLon
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// WithinGeofence reports whether p lies inside the location's circle. The
// boundary is inclusive: distance == radius matches.
func WithinGeofence(p Point, loc NamedLocation) bool {
	return Distance(p, Point{Latitude: loc.Latitude, Longitude: loc.Longitude}) <= loc.RadiusMeters
}

// MatchingLocations returns every location whose geofence contains p,
// ascending by distance from p.
func MatchingLocations(p Point, locs []NamedLocation) []NamedLocation {
	type match struct {
		loc  NamedLocation
		dist float64
	}
	matches := make([]match, 0, len(locs))
	for _, loc := range locs {
		d := Distance(p, Point{Latitude: loc.Latitude, Longitude: loc.Longitude})
		if d <= loc.RadiusMeters {
			matches = append(matches, match{loc: loc, dist: d})
		}
	}
	slices.SortStableFunc(matches, func(a, b match) int {
		switch {
		case a.dist < b.dist:
			return -1
		case a.dist > b.dist:
			return 1
		default:
			return 0
		}
	})
	out := make([]NamedLocation, len(matches))
	for i, m := range matches {
		out[i] = m.loc
	}
	return out
}

// BestMatch returns the matching location with the smallest radius, ties
// broken by distance. ok is false when nothing matches.
func BestMatch(p Point, locs []NamedLocation) (NamedLocation, bool) {
	var (
		best     NamedLocation
		bestDist float64
		found    bool
	)
	for _, loc := range locs {
		d := Distance(p, Point{Latitude: loc.Latitude, Longitude: loc.Longitude})
		if d > loc.RadiusMeters {
			continue
		}
		if !found || loc.RadiusMeters < best.RadiusMeters ||
			(loc.RadiusMeters == best.RadiusMeters && d < bestDist) {
			best, bestDist, found = loc, d, true
		}
	}
	return best, found
}
