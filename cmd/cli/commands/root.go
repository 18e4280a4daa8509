// Package commands implements the wa CLI command tree.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/whereabouts-app/whereabouts/internal/client"
	"github.com/whereabouts-app/whereabouts/internal/crypto/keys"
)

var (
	serverURL string
	configDir string

	st *store
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func Execute() error {
	root := &cobra.Command{
		Use:          "wa",
		Short:        "Privacy-first location sharing",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configDir == "" {
				configDir = defaultCfgDir()
			}
			if err := os.MkdirAll(configDir, 0o700); err != nil {
				return err
			}
			st = newStore(configDir)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "server base URL")
	root.PersistentFlags().StringVar(&configDir, "config", "", "config dir (default ~/.config/whereabouts)")

	root.AddCommand(
		initCmd(), loginCmd(), logoutCmd(), whoamiCmd(),
		contactsCmd(), placesCmd(), publishCmd(), whereisCmd(),
		identityCmd(), backupCmd(), devicesCmd(), versionCmd(),
	)
	return root.Execute()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("wa %s (%s)\n", version, buildDate)
		},
	}
}

// cmdCtx bounds one command's network work.
func cmdCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// api returns an unauthenticated client for register/login.
func api() *client.Client {
	return client.New(serverURL)
}

// authedAPI builds a client from the saved session. The device id rides
// along when this device has registered itself.
func authedAPI() (*client.Client, client.Session, error) {
	sess, err := st.LoadSession()
	if err != nil {
		return nil, client.Session{}, err
	}
	opts := []client.Option{client.WithToken(sess.Token)}
	if id, ok := st.LoadDeviceID(); ok {
		opts = append(opts, client.WithDeviceID(id))
	}
	return client.New(serverURL, opts...), sess, nil
}

// loadIdentity returns the device keypair, with guidance when none exists.
func loadIdentity() (*keys.Identity, keys.AccountMeta, error) {
	id, meta, err := st.Keystore().Load()
	if err != nil {
		return nil, keys.AccountMeta{}, err
	}
	if id == nil {
		return nil, keys.AccountMeta{}, errors.New("no identity on this device (run `wa init` or `wa identity import`)")
	}
	return id, meta, nil
}
