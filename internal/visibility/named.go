package visibility

import (
	"slices"

	"github.com/gofrs/uuid/v5"
)

// VisibilityMode controls who may see a named location's label.
type VisibilityMode string

const (
	// ModePrivate discloses the label to nobody, ever.
	ModePrivate VisibilityMode = "private"
	// ModeAll discloses the label to every contact.
	ModeAll VisibilityMode = "all"
	// ModeSelected discloses the label only to listed contacts.
	ModeSelected VisibilityMode = "selected"
)

// LabelVisibility is a named location's disclosure rule.
type LabelVisibility struct {
	Mode       VisibilityMode `json:"mode"`
	ContactIDs []uuid.UUID    `json:"contactIds,omitempty"`
}

// Discloses reports whether the label may be shown to viewer. It is
// independent of the viewer's geographic permission level. Unknown modes
// disclose nothing.
func (v LabelVisibility) Discloses(viewer uuid.UUID) bool {
	switch v.Mode {
	case ModeAll:
		return true
	case ModeSelected:
		return slices.Contains(v.ContactIDs, viewer)
	default:
		return false
	}
}

// NamedLocation is a user-defined place. It lives only on the owning device;
// coordinates are never transmitted.
type NamedLocation struct {
	ID           uuid.UUID       `json:"id"`
	Label        string          `json:"label"`
	Latitude     float64         `json:"latitude"`
	Longitude    float64         `json:"longitude"`
	RadiusMeters float64         `json:"radiusMeters"`
	Visibility   LabelVisibility `json:"visibility"`
}
