package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/gofrs/uuid/v5"
	"github.com/spf13/cobra"

	"github.com/whereabouts-app/whereabouts/internal/crypto/payload"
	"github.com/whereabouts-app/whereabouts/internal/errs"
	"github.com/whereabouts-app/whereabouts/internal/visibility"
)

func placesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "places",
		Short: "Manage named places (coordinates never leave this device unencrypted)",
	}
	cmd.AddCommand(placesAddCmd(), placesListCmd(), placesRemoveCmd(), placesPushCmd(), placesPullCmd())
	return cmd
}

func parseShareMode(s string) (visibility.VisibilityMode, error) {
	switch m := visibility.VisibilityMode(strings.ToLower(strings.TrimSpace(s))); m {
	case visibility.ModePrivate, visibility.ModeAll, visibility.ModeSelected:
		return m, nil
	}
	return "", fmt.Errorf("unknown share mode %q (private, all or selected)", s)
}

// resolvePlace matches arg against a place id or label. Labels match
// case-insensitively and must be unique.
func resolvePlace(locs []visibility.NamedLocation, arg string) (visibility.NamedLocation, error) {
	if id, err := uuid.FromString(arg); err == nil {
		for _, l := range locs {
			if l.ID == id {
				return l, nil
			}
		}
		return visibility.NamedLocation{}, fmt.Errorf("no place with id %s", arg)
	}
	needle := strings.ToLower(strings.TrimSpace(arg))
	var found []visibility.NamedLocation
	for _, l := range locs {
		if strings.ToLower(l.Label) == needle {
			found = append(found, l)
		}
	}
	switch len(found) {
	case 0:
		return visibility.NamedLocation{}, fmt.Errorf("no place named %q", arg)
	case 1:
		return found[0], nil
	default:
		return visibility.NamedLocation{}, fmt.Errorf("%d places named %q, use the id", len(found), arg)
	}
}

func placesAddCmd() *cobra.Command {
	var (
		lat    float64
		lon    float64
		radius float64
		share  string
		with   []string
	)
	cmd := &cobra.Command{
		Use:   "add LABEL",
		Short: "Add a named place with a geofence",
		RunE: func(cmd *cobra.Command, args []string) error {
			label := strings.TrimSpace(args[0])
			if label == "" {
				return errors.New("empty label")
			}
			if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
				return fmt.Errorf("coordinates out of range: %f,%f", lat, lon)
			}
			if radius <= 0 {
				return fmt.Errorf("radius must be positive, got %f", radius)
			}
			mode, err := parseShareMode(share)
			if err != nil {
				return err
			}
			if mode == visibility.ModeSelected && len(with) == 0 {
				return errors.New("selected visibility needs at least one --with EMAIL")
			}
			if mode != visibility.ModeSelected && len(with) > 0 {
				return errors.New("--with only applies to --share selected")
			}

			vis := visibility.LabelVisibility{Mode: mode}
			if mode == visibility.ModeSelected {
				c, _, err := authedAPI()
				if err != nil {
					return err
				}
				ctx, cancel := cmdCtx()
				defer cancel()

				contacts, err := c.Contacts(ctx)
				if err != nil {
					return err
				}
				for _, w := range with {
					peer, err := resolvePeer(contacts, w)
					if err != nil {
						return err
					}
					vis.ContactIDs = append(vis.ContactIDs, peer.PeerID)
				}
			}

			locs, err := st.LoadPlaces()
			if err != nil {
				return err
			}
			id, err := uuid.NewV4()
			if err != nil {
				return err
			}
			loc := visibility.NamedLocation{
				ID:           id,
				Label:        label,
				Latitude:     lat,
				Longitude:    lon,
				RadiusMeters: radius,
				Visibility:   vis,
			}
			if err := st.SavePlaces(append(locs, loc)); err != nil {
				return err
			}
			fmt.Printf("%s Added %s\n", color.GreenString("✓"), formatNamedLocation(loc))
			return nil
		},
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	cmd.Flags().Float64Var(&radius, "radius", 100, "geofence radius in meters")
	cmd.Flags().StringVar(&share, "share", "private", "who may see the label: private, all or selected")
	cmd.Flags().StringArrayVar(&with, "with", nil, "contact email allowed to see the label (repeatable)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func placesListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List named places",
		RunE: func(cmd *cobra.Command, args []string) error {
			locs, err := st.LoadPlaces()
			if err != nil {
				return err
			}
			if asJSON {
				printJSON(locs)
				return nil
			}
			if len(locs) == 0 {
				fmt.Println("No places. Add one with `wa places add LABEL --lat .. --lon ..`.")
				return nil
			}
			for _, l := range locs {
				fmt.Printf("%s\n    id %s\n", formatNamedLocation(l), l.ID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func placesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm PLACE",
		Short: "Remove a named place (label or id)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			locs, err := st.LoadPlaces()
			if err != nil {
				return err
			}
			loc, err := resolvePlace(locs, args[0])
			if err != nil {
				return err
			}
			kept := locs[:0]
			for _, l := range locs {
				if l.ID != loc.ID {
					kept = append(kept, l)
				}
			}
			if err := st.SavePlaces(kept); err != nil {
				return err
			}
			fmt.Printf("%s Removed %s\n", color.GreenString("✓"), loc.Label)
			return nil
		},
	}
}

func placesPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Upload places to the server, encrypted to yourself",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			env, err := payload.Seal(locs, &id.PublicKey, &id.PrivateKey)
			if err != nil {
				return err
			}
			raw, err := env.Encode()
			if err != nil {
				return err
			}

			var ver int64
			switch cur, err := c.UserData(ctx); {
			case err == nil:
				ver = cur.Version
			case errors.Is(err, errs.ErrNotFound):
				ver = 0
			default:
				return err
			}

			newVer, err := c.PutUserData(ctx, raw, ver)
			if err != nil {
				if errors.Is(err, errs.ErrVersionConflict) {
					return fmt.Errorf("another device changed the server copy, `wa places pull` first: %w", err)
				}
				return err
			}
			fmt.Printf("%s Pushed %d places (version %d)\n", color.GreenString("✓"), len(locs), newVer)
			return nil
		},
	}
}

func placesPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Replace local places with the server copy",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _, err := loadIdentity()
			if err != nil {
				return err
			}
			c, _, err := authedAPI()
			if err != nil {
				return err
			}
			ctx, cancel := cmdCtx()
			defer cancel()

			cur, err := c.UserData(ctx)
			if err != nil {
				if errors.Is(err, errs.ErrNotFound) {
					return errors.New("nothing pushed yet")
				}
				return err
			}
			env, err := payload.Decode(cur.Payload)
			if err != nil {
				return err
			}
			var locs []visibility.NamedLocation
			if err := payload.Open(env, &id.PublicKey, &id.PrivateKey, &locs); err != nil {
				return fmt.Errorf("cannot decrypt server copy, was it pushed with a different identity: %w", err)
			}
			if err := st.SavePlaces(locs); err != nil {
				return err
			}
			fmt.Printf("%s Pulled %d places (version %d)\n", color.GreenString("✓"), len(locs), cur.Version)
			return nil
		},
	}
}
