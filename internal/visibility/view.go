package visibility

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// View is the disclosure one contact receives: the geographic hierarchy
// filtered to their granted level plus, when the viewer qualifies, the
// matched named location's label. A View is the plaintext the payload cipher
// seals; it is fixed before encryption and the server cannot change it.
type View struct {
	Place      Hierarchy `json:"place"`
	PlaceLabel string    `json:"placeLabel,omitempty"`
	At         time.Time `json:"at"`
}

// Compose builds the viewer's View. Geographic filtering and label
// disclosure are evaluated on independent axes: a viewer with the coarsest
// geographic grant may still receive the label, and the finest grant never
// reveals a withheld label.
func Compose(h Hierarchy, granted Level, match *NamedLocation, viewer uuid.UUID, at time.Time) View {
	v := View{Place: Filter(h, granted), At: at}
	if match != nil && match.Visibility.Discloses(viewer) {
		v.PlaceLabel = match.Label
	}
	return v
}
