package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/gofrs/uuid/v5"
	"github.com/spf13/cobra"

	"github.com/whereabouts-app/whereabouts/internal/client"
	"github.com/whereabouts-app/whereabouts/internal/visibility"
)

func contactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage mutual contacts and what each one may see",
	}
	cmd.AddCommand(
		contactsListCmd(), contactsRequestCmd(), contactsPendingCmd(),
		contactsAcceptCmd(), contactsDeclineCmd(), contactsCancelCmd(),
		contactsRemoveCmd(), contactsAllowCmd(),
	)
	return cmd
}

// resolvePeer matches arg against a contact id or email.
func resolvePeer(contacts []client.Contact, arg string) (client.Contact, error) {
	if id, err := uuid.FromString(arg); err == nil {
		for _, c := range contacts {
			if c.PeerID == id {
				return c, nil
			}
		}
		return client.Contact{}, fmt.Errorf("no contact with id %s", arg)
	}
	needle := strings.ToLower(strings.TrimSpace(arg))
	for _, c := range contacts {
		if strings.ToLower(c.Email) == needle {
			return c, nil
		}
	}
	return client.Contact{}, fmt.Errorf("no contact with email %q", arg)
}

func levelChoices() string {
	levels := visibility.Levels()
	names := make([]string, len(levels))
	for i, l := range levels {
		names[i] = l.String()
	}
	return strings.Join(names, ", ")
}

func contactsListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts",
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if asJSON {
				printJSON(contacts)
				return nil
			}
			if len(contacts) == 0 {
				fmt.Println("No contacts. Send a request with `wa contacts request EMAIL`.")
				return nil
			}
			for _, ct := range contacts {
				fmt.Println(formatContact(ct))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func contactsRequestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "request EMAIL",
		Short: "Send a contact request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := authedAPI()
			if err != nil {
				return err
			}
			ctx, cancel := cmdCtx()
			defer cancel()

			stop := startSpinner("Sending request...")
			profile, err := c.Lookup(ctx, args[0])
			if err != nil {
				stop()
				return err
			}
			id, err := c.RequestContact(ctx, profile.ID)
			stop()
			if err != nil {
				return err
			}
			fmt.Printf("%s Request sent to %s (request %s)\n", color.GreenString("✓"), displayName(profile.Email, profile.Name), id)
			return nil
		},
	}
}

func contactsPendingCmd() *cobra.Command {
	var outgoing bool
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List pending contact requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := authedAPI()
			if err != nil {
				return err
			}
			ctx, cancel := cmdCtx()
			defer cancel()

			var reqs []client.PendingRequest
			if outgoing {
				reqs, err = c.OutgoingRequests(ctx)
			} else {
				reqs, err = c.IncomingRequests(ctx)
			}
			if err != nil {
				return err
			}
			if len(reqs) == 0 {
				fmt.Println("Nothing pending.")
				return nil
			}
			for _, r := range reqs {
				fmt.Println(formatRequest(r))
			}
			if !outgoing {
				fmt.Printf("%s Accept with %s\n", color.CyanString("→"), color.YellowString("wa contacts accept ID"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&outgoing, "outgoing", false, "show requests you sent")
	return cmd
}

func resolveRequestCmd(use, short, done string, call func(ctx context.Context, c *client.Client, id uuid.UUID) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.FromString(args[0])
			if err != nil {
				return fmt.Errorf("bad request id %q", args[0])
			}
			c, _, err := authedAPI()
			if err != nil {
				return err
			}
			ctx, cancel := cmdCtx()
			defer cancel()

			if err := call(ctx, c, id); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", color.GreenString("✓"), done)
			return nil
		},
	}
}

func contactsAcceptCmd() *cobra.Command {
	return resolveRequestCmd("accept ID", "Accept an incoming request", "Contact added",
		func(ctx context.Context, c *client.Client, id uuid.UUID) error { return c.AcceptRequest(ctx, id) })
}

func contactsDeclineCmd() *cobra.Command {
	return resolveRequestCmd("decline ID", "Decline an incoming request", "Request declined",
		func(ctx context.Context, c *client.Client, id uuid.UUID) error { return c.DeclineRequest(ctx, id) })
}

func contactsCancelCmd() *cobra.Command {
	return resolveRequestCmd("cancel ID", "Cancel a request you sent", "Request cancelled",
		func(ctx context.Context, c *client.Client, id uuid.UUID) error { return c.CancelRequest(ctx, id) })
}

func contactsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm PEER",
		Short: "Remove a contact (email or id)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			peer, err := resolvePeer(contacts, args[0])
			if err != nil {
				return err
			}
			if err := c.RemoveContact(ctx, peer.PeerID); err != nil {
				return err
			}
			fmt.Printf("%s Removed %s. Sharing stopped in both directions.\n", color.GreenString("✓"), displayName(peer.Email, peer.Name))
			return nil
		},
	}
}

func contactsAllowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "allow PEER LEVEL",
		Short: "Set how precisely a contact sees your location",
		Long:  "Set the geographic precision a contact receives. Levels, coarsest first: " + levelChoices() + ".",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := visibility.ParseLevel(args[1])
			if err != nil {
				return fmt.Errorf("unknown level %q (one of: %s)", args[1], levelChoices())
			}
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
			peer, err := resolvePeer(contacts, args[0])
			if err != nil {
				return err
			}
			if err := c.SetPrecision(ctx, peer.PeerID, lvl.String()); err != nil {
				return err
			}
			fmt.Printf("%s %s now sees your location at %s level. What you see of them is unchanged.\n",
				color.GreenString("✓"), displayName(peer.Email, peer.Name), lvl)
			return nil
		},
	}
}
