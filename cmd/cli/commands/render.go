package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/whereabouts-app/whereabouts/internal/client"
	"github.com/whereabouts-app/whereabouts/internal/publish"
	"github.com/whereabouts-app/whereabouts/internal/visibility"
)

// printJSON pretty-prints v for scripting.
func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// formatPlace renders a hierarchy on one line, finest part first. The planet
// rung only shows when nothing finer is known.
func formatPlace(h visibility.Hierarchy) string {
	levels := visibility.Levels()
	parts := make([]string, 0, len(levels))
	for i := len(levels) - 1; i >= 1; i-- {
		if v := h[levels[i].String()]; v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return h[visibility.Planet.String()]
	}
	return strings.Join(parts, ", ")
}

// formatWhen renders a timestamp in local time.
func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func displayName(email, name string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

// formatView renders one contact's disclosed location as two lines.
func formatView(v publish.ContactView) string {
	place := formatPlace(v.View.Place)
	if v.View.PlaceLabel != "" {
		place = color.GreenString("[%s] ", v.View.PlaceLabel) + place
	}
	return fmt.Sprintf("%s\n    %s at %s", color.CyanString(displayName(v.Email, v.Name)), place, formatWhen(v.View.At))
}

func formatContact(c client.Contact) string {
	key := color.GreenString("✓")
	if len(c.PublicKey) == 0 {
		key = color.RedString("✗ no key")
	}
	return fmt.Sprintf("%s  sees: %s  key: %s\n    id %s", color.CyanString(displayName(c.Email, c.Name)), c.Precision, key, c.PeerID)
}

func formatRequest(p client.PendingRequest) string {
	return fmt.Sprintf("%s\n    request %s  (%s)", color.CyanString(displayName(p.Email, p.Name)), p.ID, formatWhen(p.CreatedAt))
}

func formatDevice(d client.Device, current bool) string {
	marker := " "
	if current {
		marker = color.GreenString("*")
	}
	return fmt.Sprintf("%s %s (%s)  last seen %s\n    id %s", marker, d.Name, d.Platform, formatWhen(d.LastSeen), d.ID)
}

func formatNamedLocation(l visibility.NamedLocation) string {
	shared := string(l.Visibility.Mode)
	if l.Visibility.Mode == visibility.ModeSelected {
		shared = fmt.Sprintf("%s (%d contacts)", shared, len(l.Visibility.ContactIDs))
	}
	return fmt.Sprintf("%s  %.5f,%.5f r=%.0fm  label visible: %s", color.CyanString(l.Label), l.Latitude, l.Longitude, l.RadiusMeters, shared)
}
