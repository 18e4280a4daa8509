package commands

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/whereabouts-app/whereabouts/internal/client"
	"github.com/whereabouts-app/whereabouts/internal/crypto/keys"
)

func initCmd() *cobra.Command {
	var (
		email    string
		name     string
		password string
		device   string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an account and an identity keypair on this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || name == "" {
				return fmt.Errorf("need --email and --name")
			}
			existing, _, err := st.Keystore().Load()
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("identity already exists in %s (use `wa login` or `wa identity import`)", configDir)
			}
			pw, err := secretFlag(password, "Password: ")
			if err != nil {
				return err
			}

			id, err := keys.Generate()
			if err != nil {
				return err
			}

			ctx, cancel := cmdCtx()
			defer cancel()

			c := api()
			userID, err := c.Register(ctx, email, name, pw, id.PublicKey[:])
			if err != nil {
				return err
			}
			res, err := c.Login(ctx, email, pw)
			if err != nil {
				return err
			}
			if err := st.Keystore().Save(id, keys.AccountMeta{Email: email, Name: name}); err != nil {
				return err
			}
			if err := st.SaveSession(client.NewSession(res)); err != nil {
				return err
			}
			if err := registerThisDevice(ctx, c, device); err != nil {
				return err
			}

			fmt.Printf("%s Account created for %s\n", color.GreenString("✓"), email)
			fmt.Printf("  user id    %s\n", userID)
			fmt.Printf("  public key %s\n", id.PublicKeyB64())
			fmt.Printf("%s Back up your identity: %s\n", color.CyanString("→"), color.YellowString("wa backup create"))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&device, "device", "", "device name (default hostname)")
	return cmd
}

// registerThisDevice records the device server-side and remembers its id so
// later calls carry the X-Device-Id header.
func registerThisDevice(ctx context.Context, c *client.Client, name string) error {
	if name == "" {
		name, _ = os.Hostname()
		if name == "" {
			name = "device"
		}
	}
	d, err := c.RegisterDevice(ctx, name, runtime.GOOS)
	if err != nil {
		return err
	}
	return st.SaveDeviceID(d.ID)
}
