package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/gofrs/uuid/v5"
	"github.com/spf13/cobra"
)

func devicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List and revoke devices on your account",
	}
	cmd.AddCommand(devicesListCmd(), devicesRevokeCmd())
	return cmd
}

func devicesListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := authedAPI()
			if err != nil {
				return err
			}
			ctx, cancel := cmdCtx()
			defer cancel()

			devices, err := c.Devices(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				printJSON(devices)
				return nil
			}
			current, _ := st.LoadDeviceID()
			for _, d := range devices {
				fmt.Println(formatDevice(d, d.ID.String() == current))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func devicesRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke ID",
		Short: "Remove a device from your account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.FromString(args[0])
			if err != nil {
				return fmt.Errorf("bad device id %q", args[0])
			}
			c, _, err := authedAPI()
			if err != nil {
				return err
			}
			ctx, cancel := cmdCtx()
			defer cancel()

			if err := c.RevokeDevice(ctx, id); err != nil {
				return err
			}
			if current, _ := st.LoadDeviceID(); current == id.String() {
				if err := st.ClearDeviceID(); err != nil {
					return err
				}
				fmt.Printf("%s Device revoked (it was this one; it will re-register on next login)\n", color.GreenString("✓"))
				return nil
			}
			fmt.Printf("%s Device revoked\n", color.GreenString("✓"))
			return nil
		},
	}
}
