package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/whereabouts-app/whereabouts/internal/crypto/keys"
)

func identityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage the device keypair",
	}
	cmd.AddCommand(identityShowCmd(), identityExportCmd(), identityImportCmd(), identityPushCmd())
	return cmd
}

func identityShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the public half of this device's identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, meta, err := loadIdentity()
			if err != nil {
				return err
			}
			fmt.Printf("account    %s\n", displayName(meta.Email, meta.Name))
			fmt.Printf("public key %s\n", id.PublicKeyB64())
			return nil
		},
	}
}

func identityExportCmd() *cobra.Command {
	var (
		out    string
		public bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the identity to a file",
		Long: `Export writes the full identity including the private key. With --public
it writes only the shareable contact card.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, meta, err := loadIdentity()
			if err != nil {
				return err
			}
			var raw []byte
			if public {
				raw, err = keys.ExportPublic(id, meta.Name)
			} else {
				raw, err = keys.ExportPrivate(id, meta)
			}
			if err != nil {
				return err
			}
			if out == "-" {
				_, err := os.Stdout.Write(raw)
				return err
			}
			if err := os.WriteFile(out, raw, 0o600); err != nil {
				return err
			}
			fmt.Printf("%s Wrote %s\n", color.GreenString("✓"), out)
			if !public {
				fmt.Printf("%s %s\n", color.YellowString("!"), keys.ExportWarning)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "-", "output file ('-' for stdout)")
	cmd.Flags().BoolVar(&public, "public", false, "export the public contact card only")
	return cmd
}

func identityImportCmd() *cobra.Command {
	var (
		pin   string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Restore an identity from an exported file",
		Long: `Import reads a private-identity file or a PIN-encrypted backup file
('-' reads stdin). Public contact cards contain no private key and are
rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			existing, _, err := st.Keystore().Load()
			if err != nil {
				return err
			}
			if existing != nil && !force {
				return errors.New("identity already exists on this device (re-run with --force to replace it)")
			}
			raw, err := readAll(args[0])
			if err != nil {
				return err
			}
			if keys.IsEncrypted(raw) && pin == "" {
				pin, err = readSecret("PIN: ")
				if err != nil {
					return err
				}
			}
			id, meta, err := keys.ImportAny(raw, pin)
			if err != nil {
				return err
			}
			if err := st.Keystore().Save(id, meta); err != nil {
				return err
			}
			fmt.Printf("%s Identity restored for %s\n", color.GreenString("✓"), displayName(meta.Email, meta.Name))
			fmt.Printf("%s If the server has an older key, run %s\n", color.CyanString("→"), color.YellowString("wa identity push"))
			return nil
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "PIN for encrypted backups (prompted when needed)")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing identity")
	return cmd
}

func identityPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Register this device's public key with the server",
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

			if err := c.SetPublicKey(ctx, id.PublicKey[:]); err != nil {
				return err
			}
			fmt.Printf("%s Public key updated. New shares to you will be sealed with it.\n", color.GreenString("✓"))
			return nil
		},
	}
}
