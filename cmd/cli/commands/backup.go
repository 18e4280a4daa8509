package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/whereabouts-app/whereabouts/internal/crypto/keys"
	"github.com/whereabouts-app/whereabouts/internal/errs"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "PIN-encrypted identity backup",
	}
	cmd.AddCommand(backupCreateCmd(), backupRestoreCmd())
	return cmd
}

func backupCreateCmd() *cobra.Command {
	var (
		pin string
		out string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Encrypt the identity with a PIN and store it on the server",
		Long: `Create seals the identity under a key derived from your PIN and uploads
it. The server only ever sees ciphertext; a forgotten PIN cannot be
recovered. With --out, the backup is written to a file instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, meta, err := loadIdentity()
			if err != nil {
				return err
			}
			p := pin
			if p == "" {
				p, err = confirmedSecret("PIN: ")
				if err != nil {
					return err
				}
			}
			raw, err := keys.EncryptBackup(id, meta, p)
			if err != nil {
				return err
			}

			if out != "" {
				if err := os.WriteFile(out, raw, 0o600); err != nil {
					return err
				}
				fmt.Printf("%s Wrote encrypted backup to %s\n", color.GreenString("✓"), out)
				return nil
			}

			c, _, err := authedAPI()
			if err != nil {
				return err
			}
			ctx, cancel := cmdCtx()
			defer cancel()

			var ver int64
			switch cur, err := c.IdentityBackup(ctx); {
			case err == nil:
				ver = cur.Version
			case errors.Is(err, errs.ErrNotFound):
				ver = 0
			default:
				return err
			}

			stop := startSpinner("Uploading backup...")
			newVer, err := c.PutIdentityBackup(ctx, raw, ver)
			stop()
			if err != nil {
				if errors.Is(err, errs.ErrVersionConflict) {
					return fmt.Errorf("backup changed on the server meanwhile, retry: %w", err)
				}
				return err
			}
			fmt.Printf("%s Encrypted backup stored (version %d)\n", color.GreenString("✓"), newVer)
			fmt.Printf("%s On a new device: %s then %s\n", color.CyanString("→"),
				color.YellowString("wa login"), color.YellowString("wa backup restore"))
			return nil
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "PIN (prompted twice when omitted)")
	cmd.Flags().StringVar(&out, "out", "", "write the backup to a file instead of uploading")
	return cmd
}

func backupRestoreCmd() *cobra.Command {
	var (
		pin   string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Fetch the server backup and restore the identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			existing, _, err := st.Keystore().Load()
			if err != nil {
				return err
			}
			if existing != nil && !force {
				return errors.New("identity already exists on this device (re-run with --force to replace it)")
			}
			c, _, err := authedAPI()
			if err != nil {
				return err
			}
			ctx, cancel := cmdCtx()
			defer cancel()

			cur, err := c.IdentityBackup(ctx)
			if err != nil {
				if errors.Is(err, errs.ErrNotFound) {
					return errors.New("no backup on the server (create one with `wa backup create`)")
				}
				return err
			}
			p, err := secretFlag(pin, "PIN: ")
			if err != nil {
				return err
			}
			id, meta, err := keys.DecryptBackup(cur.Payload, p)
			if err != nil {
				if errors.Is(err, errs.ErrCrypto) {
					return errors.New("wrong PIN or corrupted backup")
				}
				return err
			}
			if err := st.Keystore().Save(id, meta); err != nil {
				return err
			}
			fmt.Printf("%s Identity restored for %s\n", color.GreenString("✓"), displayName(meta.Email, meta.Name))
			return nil
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "PIN (prompted when omitted)")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing identity")
	return cmd
}
