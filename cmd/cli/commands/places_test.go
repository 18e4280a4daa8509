package commands

import (
	"testing"

	"github.com/gofrs/uuid/v5"

	"github.com/whereabouts-app/whereabouts/internal/visibility"
)

func Test_parseShareMode(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]visibility.VisibilityMode{
		"private":  visibility.ModePrivate,
		" ALL ":    visibility.ModeAll,
		"Selected": visibility.ModeSelected,
	} {
		got, err := parseShareMode(in)
		if err != nil || got != want {
			t.Fatalf("parseShareMode(%q)=%v %v", in, got, err)
		}
	}
	if _, err := parseShareMode("friends"); err == nil {
		t.Fatalf("unknown mode should fail")
	}
}

func Test_resolvePlace(t *testing.T) {
	t.Parallel()

	a, _ := uuid.NewV4()
	b, _ := uuid.NewV4()
	c, _ := uuid.NewV4()
	locs := []visibility.NamedLocation{
		{ID: a, Label: "Home"},
		{ID: b, Label: "Office"},
		{ID: c, Label: "office"},
	}

	got, err := resolvePlace(locs, "home")
	if err != nil || got.ID != a {
		t.Fatalf("by label: %+v %v", got, err)
	}

	got, err = resolvePlace(locs, b.String())
	if err != nil || got.ID != b {
		t.Fatalf("by id: %+v %v", got, err)
	}

	if _, err := resolvePlace(locs, "Office"); err == nil {
		t.Fatalf("ambiguous label should fail")
	}
	if _, err := resolvePlace(locs, "Cabin"); err == nil {
		t.Fatalf("unknown label should fail")
	}
}
