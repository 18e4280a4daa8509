package visibility

import (
	"testing"

	"github.com/gofrs/uuid/v5"
)

func TestDiscloses(t *testing.T) {
	t.Parallel()
	member := uuid.Must(uuid.NewV4())
	stranger := uuid.Must(uuid.NewV4())

	tests := []struct {
		name   string
		vis    LabelVisibility
		viewer uuid.UUID
		want   bool
	}{
		{"all discloses to anyone", LabelVisibility{Mode: ModeAll}, stranger, true},
		{"selected member", LabelVisibility{Mode: ModeSelected, ContactIDs: []uuid.UUID{member}}, member, true},
		{"selected non-member", LabelVisibility{Mode: ModeSelected, ContactIDs: []uuid.UUID{member}}, stranger, false},
		{"selected empty list", LabelVisibility{Mode: ModeSelected}, member, false},
		{"private discloses to nobody", LabelVisibility{Mode: ModePrivate, ContactIDs: []uuid.UUID{member}}, member, false},
		{"unknown mode fails closed", LabelVisibility{Mode: "friends-of-friends"}, member, false},
		{"zero value fails closed", LabelVisibility{}, member, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.vis.Discloses(tt.viewer); got != tt.want {
				t.Fatalf("Discloses=%v, want %v", got, tt.want)
			}
		})
	}
}
