// Package visibility implements the two-axis disclosure engine: geographic
// hierarchy filtering along a fixed coarse-to-fine level ladder, and
// named-location label disclosure evaluated independently per viewer.
// Filtering always runs before encryption; the server never adjusts a view.
package visibility

import (
	"fmt"
	"strings"

	"github.com/whereabouts-app/whereabouts/internal/errs"
)

// Level is one rung of the coarse-to-fine disclosure ladder.
type Level int

// Levels in fixed order, coarsest first.
const (
	Planet Level = iota
	Continent
	Country
	State
	City
	Neighborhood
	Street
	Address
)

var levelNames = [...]string{
	Planet:       "planet",
	Continent:    "continent",
	Country:      "country",
	State:        "state",
	City:         "city",
	Neighborhood: "neighborhood",
	Street:       "street",
	Address:      "address",
}

// String returns the canonical wire name of the level.
func (l Level) String() string {
	if l < Planet || l > Address {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// Coarser reports whether l discloses less detail than other.
func (l Level) Coarser(other Level) bool { return l < other }

// Levels returns all levels coarsest first.
func Levels() []Level {
	out := make([]Level, 0, len(levelNames))
	for l := Planet; l <= Address; l++ {
		out = append(out, l)
	}
	return out
}

// ParseLevel maps a wire name onto a Level, canonicalizing case and
// whitespace. Unknown names are a validation error; use LevelOrCoarsest on
// the read path where failing closed is required instead.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for l, name := range levelNames {
		if name == s {
			return Level(l), nil
		}
	}
	return Planet, fmt.Errorf("%w: unknown permission level %q", errs.ErrValidation, s)
}

// LevelOrCoarsest maps a wire name onto a Level, degrading any unrecognized
// value to the coarsest level. It never widens disclosure.
func LevelOrCoarsest(s string) Level {
	l, err := ParseLevel(s)
	if err != nil {
		return Planet
	}
	return l
}
