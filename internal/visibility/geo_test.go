package visibility

import (
	"math"
	"testing"
)

func TestDistance_ZeroAtSamePoint(t *testing.T) {
	t.Parallel()
	pts := []Point{
		{},
		{Latitude: 59.9139, Longitude: 10.7522},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 90, Longitude: 0},
	}
	for _, p := range pts {
		if d := Distance(p, p); d != 0 {
			t.Fatalf("Distance(%v, %v)=%v, want exactly 0", p, p, d)
		}
	}
}

func TestDistance_KnownValues(t *testing.T) {
	t.Parallel()
	// one degree of longitude on the equator
	a := Point{Latitude: 0, Longitude: 0}
	b := Point{Latitude: 0, Longitude: 1}
	want := math.Pi * earthRadiusMeters / 180
	if d := Distance(a, b); math.Abs(d-want) > 1 {
		t.Fatalf("equator degree: got %.1f, want %.1f", d, want)
	}

	// Oslo-Bergen, roughly 305 km
	oslo := Point{Latitude: 59.9139, Longitude: 10.7522}
	bergen := Point{Latitude: 60.3913, Longitude: 5.3221}
	if d := Distance(oslo, bergen); d < 300_000 || d > 310_000 {
		t.Fatalf("Oslo-Bergen: got %.0f m, want ~305 km", d)
	}

	// symmetric
	if Distance(oslo, bergen) != Distance(bergen, oslo) {
		t.Fatalf("distance is not symmetric")
	}
}

func TestWithinGeofence_BoundaryInclusive(t *testing.T) {
	t.Parallel()
	center := Point{Latitude: 59.9139, Longitude: 10.7522}
	p := Point{Latitude: 59.9239, Longitude: 10.7522}
	d := Distance(p, center)

	loc := NamedLocation{Label: "home", Latitude: center.Latitude, Longitude: center.Longitude}

	loc.RadiusMeters = d
	if !WithinGeofence(p, loc) {
		t.Fatalf("point exactly on the boundary must match")
	}
	loc.RadiusMeters = d - 0.01
	if WithinGeofence(p, loc) {
		t.Fatalf("point just outside must not match")
	}
	loc.RadiusMeters = 0
	if !WithinGeofence(center, loc) {
		t.Fatalf("center with zero radius must match itself")
	}
}

func TestMatchingLocations_AscendingByDistance(t *testing.T) {
	t.Parallel()
	p := Point{Latitude: 0, Longitude: 0}
	locs := []NamedLocation{
		{Label: "far", Latitude: 0, Longitude: 0.02, RadiusMeters: 5000},
		{Label: "near", Latitude: 0, Longitude: 0.001, RadiusMeters: 5000},
		{Label: "out", Latitude: 1, Longitude: 1, RadiusMeters: 10},
		{Label: "mid", Latitude: 0.01, Longitude: 0, RadiusMeters: 5000},
	}

	got := MatchingLocations(p, locs)
	if len(got) != 3 {
		t.Fatalf("got %d matches, want 3", len(got))
	}
	wantOrder := []string{"near", "mid", "far"}
	for i, w := range wantOrder {
		if got[i].Label != w {
			t.Fatalf("position %d: got %q, want %q", i, got[i].Label, w)
		}
	}

	if out := MatchingLocations(p, nil); len(out) != 0 {
		t.Fatalf("empty input should match nothing")
	}
}

func TestBestMatch_SmallestRadiusWins(t *testing.T) {
	t.Parallel()
	p := Point{Latitude: 0, Longitude: 0}

	locs := []NamedLocation{
		{Label: "block", Latitude: 0, Longitude: 0.0005, RadiusMeters: 500},
		{Label: "city", Latitude: 0, Longitude: 0.0001, RadiusMeters: 50_000},
	}
	best, ok := BestMatch(p, locs)
	if !ok || best.Label != "block" {
		t.Fatalf("got %q ok=%v, want \"block\" (smallest radius, not closest center)", best.Label, ok)
	}

	// equal radius: nearer center wins
	locs = []NamedLocation{
		{Label: "b", Latitude: 0, Longitude: 0.002, RadiusMeters: 1000},
		{Label: "a", Latitude: 0, Longitude: 0.001, RadiusMeters: 1000},
	}
	best, ok = BestMatch(p, locs)
	if !ok || best.Label != "a" {
		t.Fatalf("tie-break: got %q ok=%v, want \"a\"", best.Label, ok)
	}

	if _, ok := BestMatch(p, nil); ok {
		t.Fatalf("empty list must report no match")
	}
	if _, ok := BestMatch(p, []NamedLocation{{Label: "x", Latitude: 5, Longitude: 5, RadiusMeters: 1}}); ok {
		t.Fatalf("non-matching list must report no match")
	}
}
