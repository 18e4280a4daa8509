package commands

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/whereabouts-app/whereabouts/internal/client"
	"github.com/whereabouts-app/whereabouts/internal/errs"
)

func loginCmd() *cobra.Command {
	var (
		email    string
		password string
		device   string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("need --email")
			}
			pw, err := secretFlag(password, "Password: ")
			if err != nil {
				return err
			}

			ctx, cancel := cmdCtx()
			defer cancel()

			c := api()
			res, err := c.Login(ctx, email, pw)
			if err != nil {
				return err
			}
			if err := st.SaveSession(client.NewSession(res)); err != nil {
				return err
			}
			if _, ok := st.LoadDeviceID(); !ok {
				if err := registerThisDevice(ctx, c, device); err != nil {
					return err
				}
			}

			fmt.Printf("%s Logged in as %s\n", color.GreenString("✓"), email)

			id, _, err := st.Keystore().Load()
			if err != nil {
				return err
			}
			switch {
			case id == nil:
				fmt.Printf("%s No identity on this device. Restore it with %s or %s\n",
					color.YellowString("!"), color.YellowString("wa backup restore"), color.YellowString("wa identity import"))
			case !bytes.Equal(res.User.PublicKey, id.PublicKey[:]):
				fmt.Printf("%s The server holds a different public key. If this device has the current identity, run %s\n",
					color.YellowString("!"), color.YellowString("wa identity push"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&device, "device", "", "device name (default hostname)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session token and forget it",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := authedAPI()
			if err != nil {
				// Nothing to revoke; drop whatever is left locally.
				return st.ClearSession()
			}

			ctx, cancel := cmdCtx()
			defer cancel()

			if err := c.Logout(ctx); err != nil && !errors.Is(err, errs.ErrUnauthorized) {
				return err
			}
			if err := st.ClearSession(); err != nil {
				return err
			}
			fmt.Printf("%s Logged out\n", color.GreenString("✓"))
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := st.LoadSession()
			if err != nil {
				return err
			}
			fmt.Println(displayName(sess.Email, sess.Name))
			fmt.Printf("  user id  %s\n", sess.UserID)
			fmt.Printf("  expires  %s\n", formatWhen(sess.ExpiresAt))
			if id, _, err := st.Keystore().Load(); err == nil && id != nil {
				fmt.Printf("  key      %s\n", id.PublicKeyB64())
			} else {
				fmt.Printf("  key      %s\n", color.YellowString("none on this device"))
			}
			return nil
		},
	}
}
