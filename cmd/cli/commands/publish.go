package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/whereabouts-app/whereabouts/internal/publish"
	"github.com/whereabouts-app/whereabouts/internal/visibility"
)

func publishCmd() *cobra.Command {
	var (
		lat float64
		lon float64
		at  string
	)
	cmd := &cobra.Command{
		Use:   "publish [FIELD=VALUE ...]",
		Short: "Share your current location with every contact",
		Long: `Publish encrypts one view per contact and uploads the batch. Geocoded
place fields are passed as FIELD=VALUE pairs:

  wa publish --lat 59.9139 --lon 10.7522 country=Norway city=Oslo road="Karl Johans gate"

Each contact receives only the detail granted with "wa contacts allow",
plus a place label when a matching named place is shared with them.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parseRawFields(args)
			if err != nil {
				return err
			}
			if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
				return fmt.Errorf("coordinates out of range: %f,%f", lat, lon)
			}
			when := time.Now()
			if at != "" {
				when, err = time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("bad --at (want RFC3339): %w", err)
				}
			}

			id, _, err := loadIdentity()
			if err != nil {
				return err
			}
			locs, err := st.LoadPlaces()
			if err != nil {
				return err
			}
			c, _, err := authedAPI()
			if err != nil {
				return err
			}
			ctx, cancel := cmdCtx()
			defer cancel()

			stop := startSpinner("Publishing...")
			rep, err := publish.NewPublisher(c, id).Publish(ctx, publish.Sample{
				Position:  visibility.Point{Latitude: lat, Longitude: lon},
				Raw:       raw,
				Locations: locs,
				At:        when,
			})
			stop()
			if err != nil {
				return err
			}
			if rep.Recipients == 0 {
				fmt.Println("No contacts to share with.")
				return nil
			}
			fmt.Printf("%s Shared with %d contacts\n", color.GreenString("✓"), rep.Stored)
			for _, skipped := range rep.SkippedNoKey {
				fmt.Printf("%s contact %s has no key registered, skipped\n", color.YellowString("!"), skipped)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	cmd.Flags().StringVar(&at, "at", "", "timestamp, RFC3339 (default now)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

// parseRawFields parses KEY=VALUE args into the geocoder field map.
func parseRawFields(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, nil
	}
	raw := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("bad field %q (want KEY=VALUE)", a)
		}
		raw[k] = v
	}
	return raw, nil
}
